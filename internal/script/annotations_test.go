package script_test

import (
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/casescript/internal/script"
	"github.com/MrWong99/casescript/internal/script/yamlsrc"
)

const annotated = `
conversations:
  - Conversation:
      id: intro
      actions:
        - ShowDialog: {content_id: hello, text: "Hello."}
        - LockConversation:
            conversation: followup
            unlock_conditions:
              - FlagSet: {flag: met_judge}
        - SetFlag: {flag: met_judge}
  - Conversation:
      id: followup
      enabled: false
      actions:
        - ShowDialog: {text: "Again."}
`

func TestAnnotations_RoundTrip(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	convs := load(t, annotated)
	cat, err := script.NewCatalog(convs...)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	h.env.Conversations = cat
	h.run(t, convs[0])

	w := yamlsrc.NewWriter()
	if err := script.WriteAnnotations(w, cat.Annotations()); err != nil {
		t.Fatalf("WriteAnnotations: %v", err)
	}
	data, err := w.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}

	r, err := yamlsrc.NewReader(data)
	if err != nil {
		t.Fatalf("NewReader: %v\n%s", err, data)
	}
	anns, err := script.ReadAnnotations(r)
	if err != nil {
		t.Fatalf("ReadAnnotations: %v\n%s", err, data)
	}

	fresh, err := script.NewCatalog(load(t, annotated)...)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	skipped, err := fresh.Apply(anns)
	if err != nil || len(skipped) != 0 {
		t.Fatalf("Apply = %v, %v", skipped, err)
	}

	intro, _ := fresh.Conversation("intro")
	if !intro.IsCompleted() {
		t.Error("intro not completed after restore")
	}
	if !intro.List().Seen("hello") {
		t.Error("seen line not restored")
	}
	followup, _ := fresh.Conversation("followup")
	want := []script.UnlockCondition{{Kind: script.UnlockFlagSet, ID: "met_judge"}}
	if got := followup.UnlockConditions(); !slices.Equal(got, want) {
		t.Errorf("unlock conditions = %v, want %v", got, want)
	}
	if followup.IsEnabled() {
		t.Error("followup enabled after restore")
	}
}

func TestCatalog_Apply(t *testing.T) {
	t.Parallel()
	cat, err := script.NewCatalog(load(t, annotated)...)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}

	skipped, err := cat.Apply([]script.Annotations{
		{ConversationID: "removed", Enabled: true},
		{ConversationID: "intro", Locks: []string{"bogus"}},
	})
	if !slices.Equal(skipped, []string{"removed"}) {
		t.Errorf("skipped = %v, want [removed]", skipped)
	}
	if err == nil || !strings.Contains(err.Error(), "bogus") {
		t.Errorf("Apply error = %v, want malformed lock", err)
	}
}

func TestCatalog_Add(t *testing.T) {
	t.Parallel()
	a := script.NewConversation("a", "A", &script.ActionList{})
	dup := script.NewConversation("a", "A again", &script.ActionList{})
	anon := script.NewConversation("", "", &script.ActionList{})

	cat, err := script.NewCatalog(a, dup, anon)
	if !errors.Is(err, script.ErrAuthoring) {
		t.Fatalf("error = %v, want ErrAuthoring", err)
	}
	if cat != nil {
		t.Fatal("NewCatalog returned a catalog alongside an error")
	}

	cat, err = script.NewCatalog(a)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	if err := cat.Add(dup); !errors.Is(err, script.ErrAuthoring) {
		t.Errorf("Add duplicate error = %v", err)
	}
	if cat.Len() != 1 {
		t.Errorf("Len = %d, want 1", cat.Len())
	}
	if got, ok := cat.Conversation("a"); !ok || got.Name != "A" {
		t.Errorf("Conversation(a) = %v, %v", got, ok)
	}
}

func TestParseUnlockCondition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    script.UnlockCondition
		wantErr bool
	}{
		{in: "flag_set:met_judge", want: script.UnlockCondition{Kind: script.UnlockFlagSet, ID: "met_judge"}},
		{in: "partner_present:maya", want: script.UnlockCondition{Kind: script.UnlockPartnerPresent, ID: "maya"}},
		{in: "flag_set:", wantErr: true},
		{in: "weather:rain", wantErr: true},
		{in: "nocolon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := script.ParseUnlockCondition(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseUnlockCondition(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUnlockCondition(%q): %v", tt.in, err)
			}
			if got != tt.want || got.String() != tt.in {
				t.Errorf("ParseUnlockCondition(%q) = %v (%s)", tt.in, got, got)
			}
		})
	}
}
