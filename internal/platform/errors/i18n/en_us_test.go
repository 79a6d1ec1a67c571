package i18n

import "testing"

func TestFormatKnownCode(t *testing.T) {
	got := Format("INSUFFICIENT_POINTS", nil)
	if got != "Not enough points for this trade." {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestFormatUnknownCodeFallsBackToCode(t *testing.T) {
	if got := Format("NO_SUCH_CODE", nil); got != "NO_SUCH_CODE" {
		t.Fatalf("expected code fallback, got %q", got)
	}
}

func TestFormatTemplateErrors(t *testing.T) {
	messages["BROKEN_PARSE"] = "{{ if .Name }}"
	messages["BROKEN_EXEC"] = "{{ call .Name }}"
	defer func() {
		delete(messages, "BROKEN_PARSE")
		delete(messages, "BROKEN_EXEC")
	}()

	if got := Format("BROKEN_PARSE", map[string]string{"Name": "X"}); got != "{{ if .Name }}" {
		t.Fatalf("expected raw template on parse error, got %q", got)
	}
	if got := Format("BROKEN_EXEC", map[string]string{"Name": "X"}); got != "{{ call .Name }}" {
		t.Fatalf("expected raw template on execute error, got %q", got)
	}
}

func TestEveryMessageRendersWithoutMetadata(t *testing.T) {
	for code := range messages {
		if got := Format(code, nil); got == "" {
			t.Fatalf("empty message for code %s", code)
		}
	}
}
