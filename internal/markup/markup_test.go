package markup

import (
	"strings"
	"testing"
)

func TestRenderBot(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text",
			in:   "hello",
			want: "hello",
		},
		{
			name: "newlines",
			in:   "a\nb",
			want: "a<br>b",
		},
		{
			name: "link",
			in:   "see https://example.com/page now",
			want: `see <a href="https://example.com/page" target="_blank">https://example.com/page</a> now`,
		},
		{
			name: "image by extension",
			in:   "https://cdn.example.com/map.PNG",
			want: `<img src="https://cdn.example.com/map.PNG" alt="image" style="max-width: 100%; border-radius: 8px;">`,
		},
		{
			name: "image by path",
			in:   "https://ideogram.ai/api/images/ephemeral/abc",
			want: `<img src="https://ideogram.ai/api/images/ephemeral/abc" alt="image" style="max-width: 100%; border-radius: 8px;">`,
		},
		{
			name: "quiz labels",
			in:   "Q1: What?\nAnswer: b",
			want: "<br><b>Q1:</b> What?<br><br><b>Answer:</b> b",
		},
		{
			name: "escapes markup",
			in:   "<script>alert(1)</script> & more",
			want: "&lt;script&gt;alert(1)&lt;/script&gt; &amp; more",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RenderBot(tt.in); got != tt.want {
				t.Errorf("RenderBot(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRenderUser(t *testing.T) {
	got := RenderUser("Q1: <b>x</b>\nhttps://example.com")
	want := "Q1: &lt;b&gt;x&lt;/b&gt;\nhttps://example.com"
	if got != want {
		t.Errorf("RenderUser = %q, want %q", got, want)
	}
}

func TestPlainText(t *testing.T) {
	rendered := RenderBot("Q1: What is 2 &amp; 2?\nAnswer: c")
	got := PlainText(rendered)
	want := "Q1: What is 2 &amp; 2?\n\nAnswer: c"
	if got != want {
		t.Errorf("PlainText = %q, want %q", got, want)
	}

	if got := PlainText(`<span>hi <a href="https://x.io">https://x.io</a></span><script>x()</script>`); got != "hi https://x.io" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestTerminalRender(t *testing.T) {
	term, err := NewTerminal(80, "notty")
	if err != nil {
		t.Fatalf("NewTerminal failed: %v", err)
	}

	out := term.Render(RenderBot("Q1: What is photosynthesis?\nsee https://example.com"))
	for _, want := range []string{"Q1:", "What is photosynthesis?", "https://example.com"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in terminal output, got %q", want, out)
		}
	}
	if strings.Contains(out, "<br>") || strings.Contains(out, "<b>") {
		t.Errorf("Expected HTML to be converted, got %q", out)
	}
}
