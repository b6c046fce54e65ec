package script

import "slices"

// Topic is one line of questioning in a confrontation.
type Topic struct {
	ID          string
	Name        string
	ActionIndex int
	Enabled     bool
	Completed   bool
}

// TopicSet is the ordered set of topics of a confrontation run, keyed by
// id. It is reset to the authored topics whenever a run begins.
type TopicSet struct {
	topics []Topic
}

// NewTopicSet returns a set holding copies of topics in order.
func NewTopicSet(topics []Topic) *TopicSet {
	return &TopicSet{topics: slices.Clone(topics)}
}

func (t *TopicSet) find(id string) int {
	return slices.IndexFunc(t.topics, func(tp Topic) bool { return tp.ID == id })
}

// Get returns the topic with id.
func (t *TopicSet) Get(id string) (Topic, bool) {
	i := t.find(id)
	if i < 0 {
		return Topic{}, false
	}
	return t.topics[i], true
}

// SetEnabled enables or disables a topic. It reports false for unknown ids.
func (t *TopicSet) SetEnabled(id string, v bool) bool {
	i := t.find(id)
	if i < 0 {
		return false
	}
	t.topics[i].Enabled = v
	return true
}

// Complete marks a topic completed. Completed topics are never offered
// again. It reports false for unknown ids.
func (t *TopicSet) Complete(id string) bool {
	i := t.find(id)
	if i < 0 {
		return false
	}
	t.topics[i].Completed = true
	return true
}

// Eligible returns the enabled, not yet completed topics in order.
func (t *TopicSet) Eligible() []Topic {
	var out []Topic
	for _, tp := range t.topics {
		if tp.Enabled && !tp.Completed {
			out = append(out, tp)
		}
	}
	return out
}

// All returns a copy of every topic in order.
func (t *TopicSet) All() []Topic { return slices.Clone(t.topics) }

// Snapshot captures the enabled and completed state of every topic.
func (t *TopicSet) Snapshot() []Topic { return t.All() }

// Restore replaces the set with a snapshot taken by [TopicSet.Snapshot].
func (t *TopicSet) Restore(snap []Topic) { t.topics = slices.Clone(snap) }
