package script

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/casescript/internal/condition"
	"github.com/MrWong99/casescript/pkg/audio"
	"github.com/MrWong99/casescript/pkg/dialog"
	"github.com/MrWong99/casescript/pkg/stage"
)

// DefaultObjectionID is the interjection played when a statement or an
// evidence prompt does not name one.
const DefaultObjectionID = "Objection"

// DefaultHealth is the player and opponent health of a confrontation that
// does not author one.
const DefaultHealth = 5

// suggestThreshold is the minimum Jaro-Winkler similarity for a "did you
// mean" hint.
const suggestThreshold = 0.8

// ─────────────────────────────────────────────────────────────────────────────
// Field reading
// ─────────────────────────────────────────────────────────────────────────────

type targetRef struct {
	index int
	name  string
	value int
}

// fields reads the body of one element. The first error sticks; later
// reads return zero values.
type fields struct {
	r     Reader
	index int
	refs  *[]targetRef
	err   error
}

func (f *fields) fail(name string, err error) {
	if f.err != nil {
		return
	}
	if f.index < 0 {
		f.err = fmt.Errorf("%w: %s: %w", ErrAuthoring, name, err)
		return
	}
	f.err = faultf(f.index, "%s: %v", name, err)
}

func (f *fields) has(name string) bool { return f.err == nil && f.r.Has(name) }

func (f *fields) text(name string) string {
	if f.err != nil {
		return ""
	}
	v, err := f.r.ReadText(name)
	if err != nil {
		f.fail(name, err)
	}
	return v
}

func (f *fields) optText(name, def string) string {
	if !f.has(name) {
		return def
	}
	return f.text(name)
}

func (f *fields) num(name string) int {
	if f.err != nil {
		return 0
	}
	v, err := f.r.ReadInt(name)
	if err != nil {
		f.fail(name, err)
	}
	return v
}

func (f *fields) optNum(name string, def int) int {
	if !f.has(name) {
		return def
	}
	return f.num(name)
}

func (f *fields) boolean(name string) bool {
	if f.err != nil {
		return false
	}
	v, err := f.r.ReadBool(name)
	if err != nil {
		f.fail(name, err)
	}
	return v
}

func (f *fields) optBool(name string, def bool) bool {
	if !f.has(name) {
		return def
	}
	return f.boolean(name)
}

func (f *fields) textList(name string) []string {
	if f.err != nil {
		return nil
	}
	v, err := f.r.ReadTextList(name)
	if err != nil {
		f.fail(name, err)
	}
	return v
}

// target reads a required branch target. Targets are range-checked once the
// whole list is known.
func (f *fields) target(name string) int {
	v := f.num(name)
	if f.err == nil && f.refs != nil {
		*f.refs = append(*f.refs, targetRef{index: f.index, name: name, value: v})
	}
	return v
}

func (f *fields) optTarget(name string) int {
	if !f.has(name) {
		return noTarget
	}
	return f.target(name)
}

// millis reads a duration authored in milliseconds.
func (f *fields) millis(name string, def time.Duration) time.Duration {
	if !f.has(name) {
		return def
	}
	ms := f.num(name)
	if ms < 0 {
		f.fail(name, fmt.Errorf("negative duration %d", ms))
	}
	return time.Duration(ms) * time.Millisecond
}

func (f *fields) position(name string) stage.Position {
	p, err := stage.ParsePosition(f.optText(name, ""))
	if err != nil {
		f.fail(name, err)
	}
	return p
}

// slot reads a position that must name a character slot.
func (f *fields) slot(name string) stage.Position {
	p := f.position(name)
	if f.err == nil && p == stage.PositionNone {
		f.fail(name, errors.New("must be left or right"))
	}
	return p
}

func (f *fields) each(name string, fn func(tag string) error) {
	if !f.has(name) {
		return
	}
	if err := f.r.Each(name, fn); err != nil {
		f.fail(name, err)
	}
}

// targetMap reads a list of {id, index} items tagged itemTag.
func (f *fields) targetMap(name, itemTag string) map[string]int {
	m := make(map[string]int)
	f.each(name, func(tag string) error {
		if tag != itemTag {
			return fmt.Errorf("unexpected %q, want %s", tag, itemTag)
		}
		m[f.text("id")] = f.target("index")
		return f.err
	})
	return m
}

// ─────────────────────────────────────────────────────────────────────────────
// Conditions
// ─────────────────────────────────────────────────────────────────────────────

var conditionTags = []string{"FlagSet", "EvidenceEnabled", "PartnerIs", "Not", "And", "Or", "Lua"}

// condition reads a list holding exactly one condition.
func (f *fields) condition(name string) condition.Condition {
	cs := f.conditions(name)
	if f.err == nil && len(cs) != 1 {
		f.fail(name, fmt.Errorf("want exactly one condition, got %d", len(cs)))
		return nil
	}
	if f.err != nil {
		return nil
	}
	return cs[0]
}

func (f *fields) conditions(name string) []condition.Condition {
	var out []condition.Condition
	f.each(name, func(tag string) error {
		c, err := f.decodeCondition(tag)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	return out
}

func (f *fields) decodeCondition(tag string) (condition.Condition, error) {
	var c condition.Condition
	switch tag {
	case "FlagSet":
		c = condition.FlagSet{Flag: f.text("flag")}
	case "EvidenceEnabled":
		c = condition.EvidenceEnabled{Evidence: f.text("evidence")}
	case "PartnerIs":
		c = condition.PartnerIs{Partner: f.text("partner")}
	case "Not":
		inner := f.condition("conditions")
		c = condition.Not{Cond: inner}
	case "And", "Or":
		cs := f.conditions("conditions")
		if f.err == nil && len(cs) == 0 {
			return nil, fmt.Errorf("%w: empty %s", condition.ErrInvalid, tag)
		}
		if tag == "And" {
			c = condition.And(cs)
		} else {
			c = condition.Or(cs)
		}
	case "Lua":
		expr := f.text("expr")
		if f.err != nil {
			return nil, f.err
		}
		l, err := condition.NewLua(expr)
		if err != nil {
			return nil, err
		}
		c = l
	default:
		return nil, fmt.Errorf("%w: unknown condition %q%s", condition.ErrInvalid, tag, suggest(tag, conditionTags))
	}
	return c, f.err
}

// unlockConditions reads FlagSet{flag} and PartnerPresent{partner} items.
func (f *fields) unlockConditions(name string) []UnlockCondition {
	var out []UnlockCondition
	f.each(name, func(tag string) error {
		switch tag {
		case "FlagSet":
			out = append(out, UnlockCondition{Kind: UnlockFlagSet, ID: f.text("flag")})
		case "PartnerPresent":
			out = append(out, UnlockCondition{Kind: UnlockPartnerPresent, ID: f.text("partner")})
		default:
			return fmt.Errorf("unknown unlock condition %q%s", tag, suggest(tag, []string{"FlagSet", "PartnerPresent"}))
		}
		return f.err
	})
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────────────────────────────────────

// scope is the set of conversation kinds an action may appear in.
type scope uint8

const (
	inConversation scope = 1 << iota
	inInterrogation
	inConfrontation

	anyScope           = inConversation | inInterrogation | inConfrontation
	interrogationScope = inInterrogation | inConfrontation
)

func (k Kind) scope() scope {
	switch k {
	case KindInterrogation:
		return inInterrogation
	case KindConfrontation:
		return inConfrontation
	default:
		return inConversation
	}
}

type decodeFunc func(f *fields, b base) Action

type entry struct {
	scope  scope
	decode decodeFunc
}

// registry maps every authored tag to its decoder.
var registry = map[string]entry{
	// Flow markers.
	"BranchIfTrue":              {anyScope, decodeMarker},
	"BranchIfFalse":             {anyScope, decodeMarker},
	"EndBranchOnCondition":      {anyScope, decodeMarker},
	"BeginMultipleChoiceOption": {anyScope, decodeMarker},
	"EndMultipleChoice":         {anyScope, decodeMarker},
	"BranchIfRight":             {anyScope, decodeMarker},
	"BranchIfWrong":             {anyScope, decodeMarker},
	"EndCheckPartner":           {anyScope, decodeMarker},
	"EvidenceCorrect":           {anyScope, decodeMarker},
	"EvidenceWrong":             {anyScope, decodeMarker},
	"EvidenceEndRequested":      {anyScope, decodeMarker},
	"EndMustPresentEvidence":    {anyScope, decodeMarker},
	"Label":                     {anyScope, decodeMarker},
	"EndInterrogationRepeat":    {interrogationScope, decodeMarker},

	// Branches.
	"BranchOnCondition":       {anyScope, decodeBranchOnCondition},
	"CheckPartner":            {anyScope, decodeCheckPartner},
	"Goto":                    {anyScope, decodeGoto},
	"ExitMultipleChoice":      {anyScope, decodeGoto},
	"ExitInterrogationRepeat": {interrogationScope, decodeGoto},
	"ReturnToCachedIndex":     {anyScope, func(_ *fields, b base) Action { return &ReturnToCachedIndex{base: b} }},

	// Mutations.
	"SetFlag": {anyScope, func(f *fields, b base) Action { return &SetFlag{base: b, Flag: f.text("flag")} }},
	"ClearFlag": {anyScope, func(f *fields, b base) Action {
		return &ClearFlag{base: b, Flag: f.text("flag")}
	}},
	"EnableEvidence": {anyScope, func(f *fields, b base) Action {
		return &EnableEvidence{base: b, Evidence: f.text("evidence")}
	}},
	"DisableEvidence": {anyScope, func(f *fields, b base) Action {
		return &DisableEvidence{base: b, Evidence: f.text("evidence")}
	}},
	"UpdateEvidence": {anyScope, func(f *fields, b base) Action {
		return &UpdateEvidence{base: b, From: f.text("from"), To: f.text("to")}
	}},
	"EnableConversation": {anyScope, func(f *fields, b base) Action {
		return &EnableConversation{base: b, ConversationID: f.text("conversation")}
	}},
	"LockConversation": {anyScope, func(f *fields, b base) Action {
		return &LockConversation{base: b, ConversationID: f.text("conversation"), Conditions: f.unlockConditions("unlock_conditions")}
	}},
	"EnableCutscene": {anyScope, func(f *fields, b base) Action {
		return &EnableCutscene{base: b, CutsceneID: f.text("cutscene")}
	}},
	"SetPartner": {anyScope, func(f *fields, b base) Action {
		return &SetPartner{base: b, PartnerID: f.text("partner")}
	}},
	"ClearPartner": {anyScope, func(_ *fields, b base) Action { return &ClearPartner{base: b} }},
	"EnableTopic": {inConfrontation, func(f *fields, b base) Action {
		return &EnableTopic{base: b, TopicID: f.text("topic")}
	}},
	"EnableFastForward":  {anyScope, func(_ *fields, b base) Action { return &SetFastForward{base: b, Enabled: true} }},
	"DisableFastForward": {anyScope, func(_ *fields, b base) Action { return &SetFastForward{base: b} }},

	// Presentation.
	"ShowDialog": {anyScope, func(f *fields, b base) Action {
		d := dialogFields(f, b)
		return &d
	}},
	"ShowDialogAutomatic": {anyScope, func(f *fields, b base) Action {
		d := dialogFields(f, b)
		d.Automatic = true
		return &d
	}},
	"Notification": {anyScope, func(f *fields, b base) Action {
		d := dialogFields(f, b)
		d.mode = dialog.ModeNotification
		return &Notification{ShowDialog: d}
	}},
	"CharacterChange":         {anyScope, func(f *fields, b base) Action { return characterChange(f, b) }},
	"MultipleCharacterChange": {anyScope, decodeMultipleCharacterChange},
	"MultipleChoice":          {anyScope, decodeMultipleChoice},
	"Wait": {anyScope, func(f *fields, b base) Action {
		return &Wait{base: b, Duration: f.millis("duration_ms", 0)}
	}},
	"SetSpeaker": {anyScope, func(f *fields, b base) Action {
		return &SetSpeaker{base: b, Position: f.position("position")}
	}},
	"ShakeScreen": {anyScope, func(f *fields, b base) Action {
		return &ShakeScreen{base: b, Duration: f.millis("duration_ms", 500*time.Millisecond)}
	}},
	"ZoomWindow": {anyScope, func(f *fields, b base) Action {
		return &ZoomWindow{base: b, Zoomed: f.optBool("zoomed", true)}
	}},
	"MustPresentEvidence": {anyScope, decodeMustPresentEvidence},

	// Audio, animation and scene changes.
	"PlayMusic":      {anyScope, audioDecoder(audio.Music, AudioPlay)},
	"PauseMusic":     {anyScope, audioDecoder(audio.Music, AudioPause)},
	"ResumeMusic":    {anyScope, audioDecoder(audio.Music, AudioResume)},
	"StopMusic":      {anyScope, audioDecoder(audio.Music, AudioStop)},
	"PlayAmbiance":   {anyScope, audioDecoder(audio.Ambiance, AudioPlay)},
	"PauseAmbiance":  {anyScope, audioDecoder(audio.Ambiance, AudioPause)},
	"ResumeAmbiance": {anyScope, audioDecoder(audio.Ambiance, AudioResume)},
	"StopAmbiance":   {anyScope, audioDecoder(audio.Ambiance, AudioStop)},
	"PlaySound": {anyScope, func(f *fields, b base) Action {
		return &PlaySound{base: b, SoundID: f.text("sound")}
	}},
	"StartAnimation": {anyScope, func(f *fields, b base) Action {
		return &FieldAnimation{base: b, AnimationID: f.text("animation")}
	}},
	"StopAnimation": {anyScope, func(f *fields, b base) Action {
		return &FieldAnimation{base: b, AnimationID: f.text("animation"), Stop: true}
	}},
	"MoveToLocation":   {anyScope, transitionDecoder(stage.TransitionLocation, "location")},
	"MoveToZoomedView": {anyScope, transitionDecoder(stage.TransitionZoomedView, "view")},
	"ExitEncounter":    {anyScope, transitionDecoder(stage.TransitionExitEncounter, "")},
	"EndCase":          {anyScope, transitionDecoder(stage.TransitionEndCase, "")},

	// Breakdowns.
	"BeginBreakdown": {anyScope, func(f *fields, b base) Action {
		return &Breakdown{base: b, Position: f.slot("position")}
	}},
	"EndBreakdown": {anyScope, func(f *fields, b base) Action {
		return &Breakdown{base: b, Position: f.slot("position"), Ending: true}
	}},

	// Interrogations.
	"BeginInterrogationRepeat": {interrogationScope, func(_ *fields, b base) Action {
		return &BeginInterrogationRepeat{base: b}
	}},
	"ShowInterrogation": {interrogationScope, decodeShowInterrogation},

	// Confrontations.
	"BeginConfrontation": {inConfrontation, func(f *fields, b base) Action {
		return &BeginConfrontation{base: b, IntroID: f.optText("intro", "")}
	}},
	"ShowTopicSelection": {inConfrontation, func(f *fields, b base) Action {
		return &ShowTopicSelection{base: b, EndIndex: f.target("end_index")}
	}},
	"CompleteTopic":  {inConfrontation, func(_ *fields, b base) Action { return &CompleteTopic{base: b} }},
	"DamagePlayer":   {inConfrontation, func(_ *fields, b base) Action { return &Damage{base: b} }},
	"DamageOpponent": {inConfrontation, func(_ *fields, b base) Action { return &Damage{base: b, Opponent: true} }},
	"SetHealthVisible": {inConfrontation, func(f *fields, b base) Action {
		return &SetHealthVisible{base: b, Visible: f.optBool("visible", true)}
	}},
	"RestartConfrontation": {inConfrontation, func(_ *fields, b base) Action {
		return &RestartConfrontation{base: b}
	}},
}

// Tags returns every action tag known to the decoder, sorted.
func Tags() []string {
	tags := make([]string, 0, len(registry))
	for t := range registry {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// suggest returns a " (did you mean ...?)" hint naming the closest
// candidate, or "".
func suggest(tag string, candidates []string) string {
	best, score := "", 0.0
	for _, c := range candidates {
		if s := matchr.JaroWinkler(tag, c, false); s > score {
			best, score = c, s
		}
	}
	if score < suggestThreshold {
		return ""
	}
	return fmt.Sprintf(" (did you mean %q?)", best)
}

// ─────────────────────────────────────────────────────────────────────────────
// Decoders
// ─────────────────────────────────────────────────────────────────────────────

func decodeMarker(_ *fields, b base) Action { return &Marker{base: b} }

func decodeBranchOnCondition(f *fields, b base) Action {
	return &BranchOnCondition{
		base:       b,
		Condition:  f.condition("condition"),
		TrueIndex:  f.target("true_index"),
		FalseIndex: f.target("false_index"),
	}
}

func decodeCheckPartner(f *fields, b base) Action {
	return &CheckPartner{
		base:       b,
		PartnerID:  f.text("partner"),
		RightIndex: f.target("right_index"),
		WrongIndex: f.target("wrong_index"),
		Required:   f.optBool("required", false),
	}
}

func decodeGoto(f *fields, b base) Action {
	return &Goto{base: b, Target: f.target("index")}
}

func dialogFields(f *fields, b base) ShowDialog {
	return ShowDialog{
		base:      b,
		SpeakerID: f.optText("speaker", ""),
		ContentID: f.optText("content_id", fmt.Sprintf("line-%d", b.index)),
		Text:      f.text("text"),
		AutoDelay: f.millis("auto_delay_ms", 0),
	}
}

func characterChange(f *fields, b base) *CharacterChange {
	return &CharacterChange{
		base:        b,
		Position:    f.slot("position"),
		CharacterID: f.optText("character", ""),
		EmotionID:   f.optText("emotion", ""),
		Duration:    f.millis("duration_ms", DefaultSlideDuration),
	}
}

func decodeMultipleCharacterChange(f *fields, b base) Action {
	m := &MultipleCharacterChange{base: b}
	f.each("changes", func(tag string) error {
		if tag != "CharacterChange" {
			return fmt.Errorf("unexpected %q, want CharacterChange", tag)
		}
		m.Changes = append(m.Changes, characterChange(f, base{index: b.index, tag: tag}))
		return f.err
	})
	if f.err == nil && len(m.Changes) == 0 {
		f.fail("changes", errors.New("no changes"))
	}
	return m
}

func decodeMultipleChoice(f *fields, b base) Action {
	m := &MultipleChoice{base: b, chosen: -1}
	f.each("options", func(tag string) error {
		if tag != "Option" {
			return fmt.Errorf("unexpected %q, want Option", tag)
		}
		m.Options = append(m.Options, ChoiceOption{Text: f.text("text"), Index: f.target("index")})
		return f.err
	})
	if f.err == nil && len(m.Options) == 0 {
		f.fail("options", errors.New("no options"))
	}
	return m
}

func decodeMustPresentEvidence(f *fields, b base) Action {
	return &MustPresentEvidence{
		ShowDialog:        dialogFields(f, b),
		CorrectIDs:        f.textList("correct"),
		CorrectIndex:      f.target("correct_index"),
		WrongIndex:        f.target("wrong_index"),
		EndRequestedIndex: f.target("end_requested_index"),
		InterjectionID:    f.optText("interjection", DefaultObjectionID),
	}
}

func audioDecoder(ch audio.Channel, op AudioOp) decodeFunc {
	return func(f *fields, b base) Action {
		a := &AudioControl{
			base:     b,
			Channel:  ch,
			Op:       op,
			Instant:  f.optBool("instant", false),
			Preserve: f.optBool("preserve", false),
		}
		if op == AudioPlay {
			a.TrackID = f.text("track")
		}
		return a
	}
}

func transitionDecoder(kind stage.TransitionKind, targetField string) decodeFunc {
	return func(f *fields, b base) Action {
		t := stage.Transition{Kind: kind, TransitionID: f.optText("transition", "")}
		if targetField != "" {
			t.Target = f.text(targetField)
		}
		return &SceneTransition{base: b, Transition: t}
	}
}

func decodeShowInterrogation(f *fields, b base) Action {
	q := &ShowInterrogation{
		ShowDialog:         dialogFields(f, b),
		NextIndex:          f.optTarget("next_index"),
		FinishIndex:        f.optTarget("finish_index"),
		PreviousIndex:      f.optTarget("previous_index"),
		PressIndex:         f.optTarget("press_index"),
		EvidenceIndices:    f.targetMap("evidence", "Evidence"),
		PartnerIndices:     f.targetMap("partners", "Partner"),
		WrongEvidenceIndex: f.optTarget("wrong_evidence_index"),
		WrongPartnerIndex:  f.optTarget("wrong_partner_index"),
		EndRequestedIndex:  f.optTarget("end_requested_index"),
		InterjectionID:     f.optText("interjection", DefaultObjectionID),
	}
	if f.err == nil && q.NextIndex == noTarget && q.FinishIndex == noTarget {
		f.fail("next_index", errors.New("statement has neither next_index nor finish_index"))
	}
	return q
}

// ─────────────────────────────────────────────────────────────────────────────
// Lists and conversations
// ─────────────────────────────────────────────────────────────────────────────

var conversationTags = []string{"Conversation", "Interrogation", "Confrontation"}

// decodeAction decodes the action tagged tag at index.
func decodeAction(r Reader, kind Kind, tag string, index int, refs *[]targetRef) (Action, error) {
	e, ok := registry[tag]
	if !ok {
		return nil, fmt.Errorf("%w %q at action %d%s", ErrUnknownAction, tag, index, suggest(tag, Tags()))
	}
	if e.scope&kind.scope() == 0 {
		return nil, fmt.Errorf("%w %q at action %d: not allowed in a %s", ErrUnknownAction, tag, index, kind)
	}
	f := &fields{r: r, index: index, refs: refs}
	a := e.decode(f, base{index: index, tag: tag})
	if f.err != nil {
		return nil, f.err
	}
	return a, nil
}

// DecodeList decodes the named list of actions from the current element of
// r for a conversation of the given kind. Branch targets are checked to lie
// within [0, len(list)] and interrogation statements are linked to their
// predecessors.
func DecodeList(r Reader, name string, kind Kind) (*ActionList, error) {
	list, refs, err := decodeList(r, name, kind)
	if err != nil {
		return nil, err
	}
	if err := checkTargets(list, refs); err != nil {
		return nil, err
	}
	return list, nil
}

func decodeList(r Reader, name string, kind Kind) (*ActionList, []targetRef, error) {
	list := &ActionList{}
	var refs []targetRef
	if !r.Has(name) {
		return list, nil, nil
	}
	err := r.Each(name, func(tag string) error {
		a, err := decodeAction(r, kind, tag, len(list.actions), &refs)
		if err != nil {
			return err
		}
		list.actions = append(list.actions, a)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	linkStatements(list)
	return list, refs, nil
}

func checkTargets(list *ActionList, refs []targetRef) error {
	var errs []error
	for _, ref := range refs {
		if list.validTarget(ref.value) {
			continue
		}
		if ref.index < 0 {
			errs = append(errs, fmt.Errorf("%w: %s %d out of range [0, %d]", ErrAuthoring, ref.name, ref.value, list.Len()))
			continue
		}
		errs = append(errs, faultf(ref.index, "%s %d out of range [0, %d]", ref.name, ref.value, list.Len()))
	}
	return errors.Join(errs...)
}

// Load decodes every conversation listed under "conversations" in r.
// Each item is tagged Conversation, Interrogation or Confrontation.
func Load(r Reader) ([]*Conversation, error) {
	var out []*Conversation
	err := r.Each("conversations", func(tag string) error {
		c, err := decodeConversation(r, tag)
		if err != nil {
			return err
		}
		out = append(out, c)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("script: load: %w", err)
	}
	return out, nil
}

func decodeConversation(r Reader, tag string) (*Conversation, error) {
	var kind Kind
	switch tag {
	case "Conversation":
		kind = KindConversation
	case "Interrogation":
		kind = KindInterrogation
	case "Confrontation":
		kind = KindConfrontation
	default:
		return nil, fmt.Errorf("%w: conversation kind %q%s", ErrUnknownAction, tag, suggest(tag, conversationTags))
	}

	var refs []targetRef
	f := &fields{r: r, index: -1, refs: &refs}
	id := f.text("id")
	name := f.optText("name", id)
	enabled := f.optBool("enabled", true)
	partner := f.optText("required_partner", "")
	unlock := f.unlockConditions("unlock_conditions")

	var (
		topics           []Topic
		player, opponent int
		defeated         int
	)
	if kind == KindConfrontation {
		player = f.optNum("player_health", DefaultHealth)
		opponent = f.optNum("opponent_health", DefaultHealth)
		defeated = f.optTarget("defeated_index")
		topics = f.topics("topics")
	}
	if f.err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, id, f.err)
	}

	list, listRefs, err := decodeList(r, "actions", kind)
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, id, err)
	}
	if err := checkTargets(list, append(refs, listRefs...)); err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, id, err)
	}

	var c *Conversation
	switch kind {
	case KindInterrogation:
		c = &NewInterrogation(id, name, list).Conversation
	case KindConfrontation:
		c = &NewConfrontation(id, name, list, topics, player, opponent, defeated).Conversation
	default:
		c = NewConversation(id, name, list)
	}
	c.enabled = enabled
	c.requiredPartner = partner
	for _, u := range unlock {
		c.AddUnlockCondition(u)
	}
	return c, nil
}

func (f *fields) topics(name string) []Topic {
	var out []Topic
	f.each(name, func(tag string) error {
		if tag != "Topic" {
			return fmt.Errorf("unexpected %q, want Topic", tag)
		}
		t := Topic{
			ID:          f.text("id"),
			ActionIndex: f.target("index"),
			Enabled:     f.optBool("enabled", true),
		}
		t.Name = f.optText("name", t.ID)
		out = append(out, t)
		return f.err
	})
	return out
}
