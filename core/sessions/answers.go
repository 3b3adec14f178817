package sessions

import "maps"

// AnswerMap maps a question id to the selected option. A nil value records an
// explicitly unanswered question; a missing key is never valid at submit time.
type AnswerMap map[string]*string

func NewAnswerMap(questions []Question) AnswerMap {
	answers := make(AnswerMap, len(questions))
	for _, q := range questions {
		answers[q.ID] = nil
	}
	return answers
}

func (a AnswerMap) Clone() AnswerMap {
	if a == nil {
		return nil
	}

	clone := make(AnswerMap, len(a))
	for id, selected := range a {
		if selected == nil {
			clone[id] = nil
			continue
		}
		value := *selected
		clone[id] = &value
	}
	return clone
}

// Complete returns a copy in which every question has an entry, defaulting
// missing ones to nil.
func (a AnswerMap) Complete(questions []Question) AnswerMap {
	complete := a.Clone()
	if complete == nil {
		complete = make(AnswerMap, len(questions))
	}
	for _, q := range questions {
		if _, ok := complete[q.ID]; !ok {
			complete[q.ID] = nil
		}
	}
	return complete
}

func (a AnswerMap) IsComplete(questions []Question) bool {
	for _, q := range questions {
		if _, ok := a[q.ID]; !ok {
			return false
		}
	}
	return true
}

func (a AnswerMap) Answered() int {
	answered := 0
	for _, selected := range a {
		if selected != nil {
			answered++
		}
	}
	return answered
}

func (a AnswerMap) IsAnswered(questionID string) bool {
	selected, ok := a[questionID]
	return ok && selected != nil
}

// FirstUnanswered returns the index of the first question without a selected
// option, or 0 when every question is answered.
func (a AnswerMap) FirstUnanswered(questions []Question) int {
	for i, q := range questions {
		if !a.IsAnswered(q.ID) {
			return i
		}
	}
	return 0
}

func (a AnswerMap) Equal(other AnswerMap) bool {
	return maps.EqualFunc(a, other, func(x, y *string) bool {
		if x == nil || y == nil {
			return x == nil && y == nil
		}
		return *x == *y
	})
}

// Selected is a convenience for building answer values.
func Selected(option string) *string {
	return &option
}
