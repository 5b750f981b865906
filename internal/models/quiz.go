package models

// MaxOptionLength is the display limit of a single poll option.
const MaxOptionLength = 100

type QuizItem struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correct_index"`
}

func (q QuizItem) Clone() QuizItem {
	c := q
	c.Options = append([]string(nil), q.Options...)
	return c
}

// Poll is the transport-neutral shape of a quiz poll.
type Poll struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectOptionIndex int      `json:"correct_option_index"`
}

func (q QuizItem) Poll() Poll {
	return Poll{
		Question:           q.Question,
		Options:            append([]string(nil), q.Options...),
		CorrectOptionIndex: q.CorrectIndex,
	}
}
