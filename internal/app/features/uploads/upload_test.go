package uploads

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"comprobante.pdf", "comprobante.pdf"},
		{"../../etc/passwd", "passwd"},
		{"foto de perfil.png", "foto_de_perfil.png"},
		{"recibo#1?.jpg", "recibo_1_.jpg"},
		{"", "file"},
	}
	for _, c := range cases {
		if got := sanitizeFilename(c.in); got != c.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestSanitizeFilenameTruncatesKeepingExtension(t *testing.T) {
	got := sanitizeFilename(strings.Repeat("a", 200) + ".pdf")
	if len(got) > 100 {
		t.Errorf("len = %d, want <= 100", len(got))
	}
	if !strings.HasSuffix(got, ".pdf") {
		t.Errorf("extension dropped: %q", got)
	}
}
