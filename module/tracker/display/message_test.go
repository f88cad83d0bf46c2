package display

import "testing"

func TestParseMessage(t *testing.T) {
	tests := []struct {
		raw     string
		want    Message
		wantErr bool
	}{
		{raw: "undef", want: Message{Kind: KindUndef}},
		{raw: "clear", want: Message{Kind: KindClear}},
		{raw: "lock", want: Message{Kind: KindLock}},
		{raw: "unlock", want: Message{Kind: KindUnlock}},
		{raw: "quit", want: Message{Kind: KindQuit}},
		{raw: "title:Hauptbahnhof", want: Message{Kind: KindTitle, Text: "Hauptbahnhof"}},
		{raw: "info:Umstieg: S-Bahn", want: Message{Kind: KindInfo, Text: "Umstieg: S-Bahn"}},
		{raw: "title:", want: Message{Kind: KindTitle}},
		{raw: "", wantErr: true},
		{raw: "blink", wantErr: true},
		{raw: "note:x", wantErr: true},
		{raw: "title:a\nb", wantErr: true},
		{raw: "info:\xff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseMessage(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestMessageString(t *testing.T) {
	tests := []struct {
		msg  Message
		want string
	}{
		{msg: Message{Kind: KindLock}, want: "lock"},
		{msg: Message{Kind: KindClear, Text: "ignored"}, want: "clear"},
		{msg: TitleMessage("Hauptbahnhof"), want: "title:Hauptbahnhof"},
		{msg: InfoMessage("Endstation\r\nbitte\naussteigen"), want: "info:Endstation bitte aussteigen"},
	}

	for _, tt := range tests {
		if got := tt.msg.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
