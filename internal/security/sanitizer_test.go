package security

import "testing"

func TestTextSanitizer_Sanitize(t *testing.T) {
	sanitizer := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"プレーンテキストはそのまま", "Pan de yema recién horneado", "Pan de yema recién horneado"},
		{"空文字列", "", ""},
		{"タグを除去", "<b>Torta</b> de <i>chocolate</i>", "Torta de chocolate"},
		{"scriptを内容ごと除去", "Keke<script>alert(1)</script>", "Keke"},
		{"イベント属性付きタグを除去", `<img src=x onerror="alert(1)">Alfajor`, "Alfajor"},
		{"アンパサンドを保持", "Pan & Café", "Pan & Café"},
		{"改行を保持", "Sin azúcar\nEntregar a las 5", "Sin azúcar\nEntregar a las 5"},
		{"前後の空白を除去", "  Empanada  ", "Empanada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizer.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestTextSanitizer_Idempotent(t *testing.T) {
	sanitizer := NewTextSanitizer()
	inputs := []string{
		"<p>Pan <b>francés</b></p>",
		"Pan & Café",
		"Torta 3 < 4 leches",
	}
	for _, in := range inputs {
		once := sanitizer.Sanitize(in)
		twice := sanitizer.Sanitize(once)
		if once != twice {
			t.Errorf("not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}
