package headers

import (
	"regexp"

	"ffiassembler/internal/core/fits"
)

// field declares the output format and comment of one keyword
type field struct {
	format  fits.Format
	comment string
}

func plain(comment string) field { return field{comment: comment} }
func fixed(prec int, comment string) field { return field{format: fits.Fixed(prec), comment: comment} }
func exp(prec int, comment string) field { return field{format: fits.Exp(prec), comment: comment} }

// schema is the decimal precision contract for every emitted keyword
// Output bytes depend on these formats; change them only with a new FILEVER
var schema = map[string]field{
	// structure
	"SIMPLE":   plain("conforms to FITS standards"),
	"XTENSION": plain("marks the beginning of a new HDU"),
	"BITPIX":   plain("array data type"),
	"NAXIS":    plain("number of array dimensions"),
	"NAXIS1":   plain("length of first array dimension"),
	"NAXIS2":   plain("length of second array dimension"),
	"EXTEND":   plain("file contains extensions"),
	"NEXTEND":  plain("number of standard extensions"),
	"PCOUNT":   plain("number of parameters"),
	"GCOUNT":   plain("number of groups"),
	"INHERIT":  plain("inherit the primary header"),
	"EXTNAME":  plain("name of extension"),
	"EXTVER":   plain("extension version number (not format version)"),

	// identification
	"ORIGIN":   plain("institution responsible for creating this file"),
	"CREATOR":  plain("pipeline job and program used to produce this file"),
	"PROCVER":  plain("SW version"),
	"FILEVER":  plain("file format version"),
	"TIMVERSN": plain("OGIP memo number for file format"),
	"TELESCOP": plain("telescope"),
	"INSTRUME": plain("detector type"),
	"OBJECT":   plain("string version of target id"),
	"DATA_REL": plain("data release version number"),
	"DATSETNM": plain("data set name"),
	"DCT_TYPE": plain("data type"),
	"QUARTER":  plain("mission quarter during which data was collected"),
	"SEASON":   plain("mission season during which data was collected"),
	"MISSION":  plain("mission name"),
	"CAMPAIGN": plain("observing campaign number"),
	"CHANNEL":  plain("CCD channel"),
	"MODULE":   plain("CCD module"),
	"OUTPUT":   plain("CCD output"),

	// pointing
	"RADESYS":  plain("reference frame of celestial coordinates"),
	"EQUINOX":  fixed(1, "equinox of celestial coordinate system"),
	"RA_NOM":   fixed(6, "[deg] RA of spacecraft boresight"),
	"DEC_NOM":  fixed(6, "[deg] declination of spacecraft boresight"),
	"ROLL_NOM": fixed(6, "[deg] roll angle of spacecraft"),
	"FINE_PNT": plain("fine point pointing status during image"),
	"MMNTMDMP": plain("momentum dump occurred during image"),
	"SCCONFIG": plain("commanded S/C configuration ID"),

	// timing
	"TIMEREF":  plain("barycentric correction applied to times"),
	"TASSIGN":  plain("where time is assigned"),
	"TIMESYS":  plain("time system is barycentric JD"),
	"BJDREFI":  plain("integer part of BJD reference date"),
	"BJDREFF":  fixed(8, "fraction of day in BJD reference date"),
	"TIMEUNIT": plain("time unit for TSTART and TSTOP"),
	"TELAPSE":  fixed(8, "[d] TSTOP - TSTART"),
	"LIVETIME": fixed(8, "[d] TELAPSE multiplied by DEADC"),
	"TSTART":   fixed(8, "observation start time in BJD-BJDREF"),
	"TSTOP":    fixed(8, "observation stop time in BJD-BJDREF"),
	"DATE-OBS": plain("TSTART as UTC calendar date"),
	"DATE-END": plain("TSTOP as UTC calendar date"),
	"MJDSTART": fixed(8, "[d] start of observation in spacecraft MJD"),
	"MJDEND":   fixed(8, "[d] end of observation in spacecraft MJD"),
	"DEADC":    fixed(8, "deadtime correction"),
	"TIMEPIXR": fixed(1, "bin time beginning=0 middle=0.5 end=1"),
	"TIERRELA": exp(2, "[d] relative time error"),
	"INT_TIME": fixed(6, "[s] photon accumulation time per frame"),
	"READTIME": fixed(6, "[s] readout time per frame"),
	"FRAMETIM": fixed(6, "[s] frame time (INT_TIME + READTIME)"),
	"NUM_FRM":  plain("number of frames per time stamp"),
	"FGSFRPER": fixed(4, "[ms] FGS frame period"),
	"NUMFGSFP": plain("number of FGS frame periods per exposure"),
	"LC_COUNT": plain("long cadence reference number"),

	// instrument
	"GAIN":     fixed(2, "[electrons/count] channel gain"),
	"READNOIS": fixed(2, "[electrons] read noise"),
	"MEANBLCK": plain("[count] FSW mean black level"),
	"BUNIT":    plain("physical units of image data"),

	// barycentric
	"BARYCORR": fixed(8, "[d] barycentric time correction"),
	"BCREFROW": fixed(1, "CCD row used for barycentric correction"),
	"BCREFCOL": fixed(1, "CCD column used for barycentric correction"),

	// physical WCS
	"WCSNAMEP": plain("name of world coordinate system alternate P"),
	"WCSAXESP": plain("number of WCS physical axes"),
	"CTYPE1P":  plain("physical WCS axis 1 type CCD col"),
	"CUNIT1P":  plain("physical WCS axis 1 unit"),
	"CRPIX1P":  plain("reference CCD column"),
	"CRVAL1P":  plain("value at reference CCD column"),
	"CDELT1P":  fixed(1, "physical WCS axis 1 step"),
	"CTYPE2P":  plain("physical WCS axis 2 type CCD row"),
	"CUNIT2P":  plain("physical WCS axis 2 unit"),
	"CRPIX2P":  plain("reference CCD row"),
	"CRVAL2P":  plain("value at reference CCD row"),
	"CDELT2P":  fixed(1, "physical WCS axis 2 step"),

	// sky WCS
	"WCSAXES":  plain("number of WCS axes"),
	"CTYPE1":   plain("right ascension; gnomonic projection + SIP distortions"),
	"CTYPE2":   plain("declination; gnomonic projection + SIP distortions"),
	"CRPIX1":   fixed(6, "[pixel] reference pixel along image axis 1"),
	"CRPIX2":   fixed(6, "[pixel] reference pixel along image axis 2"),
	"CRVAL1":   fixed(8, "[deg] right ascension at reference pixel"),
	"CRVAL2":   fixed(8, "[deg] declination at reference pixel"),
	"CUNIT1":   plain("physical unit of CRVAL1"),
	"CUNIT2":   plain("physical unit of CRVAL2"),
	"CD1_1":    exp(8, "transformation matrix"),
	"CD1_2":    exp(8, "transformation matrix"),
	"CD2_1":    exp(8, "transformation matrix"),
	"CD2_2":    exp(8, "transformation matrix"),
	"A_ORDER":  plain("polynomial order, axis 1, detector to sky"),
	"B_ORDER":  plain("polynomial order, axis 2, detector to sky"),
	"AP_ORDER": plain("polynomial order, axis 1, sky to detector"),
	"BP_ORDER": plain("polynomial order, axis 2, sky to detector"),

	// integrity
	"DATASUM":  plain("data unit checksum"),
	"CHECKSUM": plain("HDU checksum"),
}

var sipTerm = regexp.MustCompile(`^(A|B|AP|BP)_[0-9]_[0-9]$`)

var sipField = exp(8, "distortion coefficient")

// lookup returns the declared field for key
func lookup(key string) (field, bool) {
	if fd, ok := schema[key]; ok {
		return fd, true
	}
	if sipTerm.MatchString(key) {
		return sipField, true
	}
	return field{}, false
}

// FormatOf returns the declared output format for key
func FormatOf(key string) (fits.Format, bool) {
	fd, ok := lookup(key)
	return fd.format, ok
}
