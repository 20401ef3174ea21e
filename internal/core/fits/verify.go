package fits

// Report is the verification outcome of one unit of a file
type Report struct {
	Index    int    `json:"index"`
	ExtName  string `json:"extname"`
	Checksum string `json:"checksum"`
	DataSum  string `json:"datasum"`
	Err      error  `json:"-"`
}

// OK reports whether the unit verified
func (r Report) OK() bool { return r.Err == nil }

// Verify checks every unit of a serialized file
// The error is set only when the file cannot be split into units
func Verify(b []byte) ([]Report, error) {
	units, err := ReadHDUs(b)
	if err != nil {
		return nil, err
	}
	out := make([]Report, len(units))
	for i, u := range units {
		r := Report{Index: i, Err: u.Verify()}
		r.ExtName, _ = u.Header.Value("EXTNAME").AsString()
		r.Checksum, _ = u.Header.Value("CHECKSUM").AsString()
		r.DataSum, _ = u.Header.Value("DATASUM").AsString()
		out[i] = r
	}
	return out, nil
}

// Failed returns the reports that did not verify
func Failed(rs []Report) []Report {
	var out []Report
	for _, r := range rs {
		if !r.OK() {
			out = append(out, r)
		}
	}
	return out
}
