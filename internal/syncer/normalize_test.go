package syncer

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  Aïcha   KONÉ ", "aicha kone"},
		{"Jean-Marc", "jean-marc"},
		{"N'Guessan", "n'guessan"},
		{"  Traoré ", "traore"},
		{"ADÉLAÏDE  éloïse", "adelaide eloise"},
	}
	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"+225 07 08 09 10 11", "0708091011"},
		{"2250708091011", "0708091011"},
		{"07-08-09-10-11", "0708091011"},
		{"00225 07 08 09 10 11", "0708091011"}, // last 10 digits win
		{"12345", "12345"},
		{"", ""},
		{"abc", ""},
	}
	for _, c := range cases {
		if got := NormalizePhone(c.in); got != c.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
