package bot

import (
	"testing"

	kit "posterbot/internal/transport"
	logx "posterbot/pkg/logx"
)

func textUpdate(text string, group bool) kit.Update {
	return kit.Update{
		Kind: kit.UpdateMessage,
		Message: &kit.Message{
			ID:     1,
			ChatID: 500,
			FromID: 42,
			Text:    text,
			IsGroup: group,
		},
	}
}

func TestBuildRequestCommandParsing(t *testing.T) {
	cases := []struct {
		text     string
		wantCmd  string
		wantArgs []string
	}{
		{"/start", "start", nil},
		{"/Ban  123", "ban", []string{"123"}},
		{"/broadcast@posterbot hello world", "broadcast", []string{"hello", "world"}},
		{"inception", "", nil},
	}
	for _, c := range cases {
		req := buildRequest(textUpdate(c.text, false))
		if req == nil {
			t.Fatalf("buildRequest(%q) = nil", c.text)
		}
		if req.Command != c.wantCmd {
			t.Errorf("%q: command = %q, want %q", c.text, req.Command, c.wantCmd)
		}
		if len(req.Args) != len(c.wantArgs) {
			t.Errorf("%q: args = %v, want %v", c.text, req.Args, c.wantArgs)
			continue
		}
		for i := range c.wantArgs {
			if req.Args[i] != c.wantArgs[i] {
				t.Errorf("%q: args[%d] = %q, want %q", c.text, i, req.Args[i], c.wantArgs[i])
			}
		}
	}
}

func TestBuildRequestCallback(t *testing.T) {
	req := buildRequest(kit.Update{
		Kind: kit.UpdateCallback,
		Callback: &kit.Callback{
			ID: "cb1", FromID: 42, ChatID: 500, MessageID: 9, Data: "select_3",
		},
	})
	if req == nil {
		t.Fatal("buildRequest returned nil for a callback")
	}
	if req.Text != "select_3" || req.FromID != 42 || req.Chat.ChatID != 500 {
		t.Fatalf("callback request = %+v", req)
	}

	if req := buildRequest(kit.Update{Kind: kit.UpdateCallback}); req != nil {
		t.Fatal("nil callback payload must be dropped")
	}
	if req := buildRequest(kit.Update{Kind: kit.UpdateMessage}); req != nil {
		t.Fatal("nil message payload must be dropped")
	}
}

func newTestRouter() *Router {
	return NewRouter(nil, nil, nil, nil, nil, nil, 42, logx.Nop())
}

func TestRouteDecisions(t *testing.T) {
	r := newTestRouter()

	cases := []struct {
		name    string
		up      kit.Update
		handled bool
	}{
		{"known command", textUpdate("/start", false), true},
		{"unknown command ignored", textUpdate("/frobnicate", false), false},
		{"numeric selection", textUpdate(" 7 ", false), true},
		{"free text search", textUpdate("inception", false), true},
		{"single char ignored", textUpdate("a", false), false},
		{"group free text ignored", textUpdate("inception", true), false},
		{"group command handled", textUpdate("/help@posterbot", true), true},
	}
	for _, c := range cases {
		req := buildRequest(c.up)
		if req == nil {
			t.Fatalf("%s: buildRequest = nil", c.name)
		}
		h := r.route(req)
		if (h != nil) != c.handled {
			t.Errorf("%s: handled = %v, want %v", c.name, h != nil, c.handled)
		}
	}

	cb := buildRequest(kit.Update{
		Kind:     kit.UpdateCallback,
		Callback: &kit.Callback{ID: "cb", FromID: 1, ChatID: 2, Data: "select_1"},
	})
	if r.route(cb) == nil {
		t.Error("callback updates must always route")
	}
}

func TestSelectionKeyboardLayout(t *testing.T) {
	rm := selectionKeyboard(7)
	rows := rm.InlineKeyboard
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if len(rows[0]) != 5 || len(rows[1]) != 2 {
		t.Fatalf("row widths = %d/%d, want 5/2", len(rows[0]), len(rows[1]))
	}
	last := rows[1][1]
	if last.Text != "7" || last.Data != "select_7" {
		t.Fatalf("last button = %+v, want text 7 / data select_7", last)
	}
}

func TestArgID(t *testing.T) {
	cases := []struct {
		args []string
		want int64
		ok   bool
	}{
		{[]string{"123"}, 123, true},
		{[]string{"-1001234"}, -1001234, true},
		{[]string{"abc"}, 0, false},
		{[]string{"0"}, 0, false},
		{[]string{}, 0, false},
		{[]string{"1", "2"}, 0, false},
	}
	for _, c := range cases {
		id, ok := argID(&Request{Args: c.args})
		if id != c.want || ok != c.ok {
			t.Errorf("argID(%v) = (%d, %v), want (%d, %v)", c.args, id, ok, c.want, c.ok)
		}
	}
}
