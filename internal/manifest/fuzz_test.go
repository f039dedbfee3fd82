package manifest

import "testing"

func FuzzParse(f *testing.F) {
	f.Add([]byte("[Quill]\nname = \"memo\"\nbackend = \"text\"\ndescription = \"d\"\n"))
	f.Add([]byte("[Quill]\nname = \"m\"\n[fields.a]\ntype = \"array\"\ndefault = [1, 2]\n"))
	f.Add([]byte("not toml"))
	f.Fuzz(func(t *testing.T, data []byte) {
		cfg, _, err := Parse(data, nil)
		if err == nil && cfg.Name == "" {
			t.Fatalf("accepted manifest without a name: %q", data)
		}
	})
}
