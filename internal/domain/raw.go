package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// LetterOption is one entry of a legacy letter-keyed option map, kept in the
// order it appeared in the source document.
type LetterOption struct {
	Letter string
	Text   string
}

// RawQuestion is the tagged union of the two external question shapes:
//
//   - legacy: {"question": ..., "options": {"A": ..., "B": ...}, "answer": "B"}
//   - expanded: {"question": ..., "answers": [{"text": ..., "correct": ...}]}
//
// The generation service emits the legacy shape; persisted question sets may
// hold either. Normalize collapses both into Question.
type RawQuestion struct {
	Prompt      string
	Options     []LetterOption
	AnswerKey   string
	Answers     []Answer
	Explanation string
}

// UnmarshalJSON decodes either shape. The options object is walked token by
// token so the source ordering of letters survives (a plain map would lose it).
func (q *RawQuestion) UnmarshalJSON(data []byte) error {
	var wire struct {
		Prompt      string          `json:"question"`
		Options     json.RawMessage `json:"options"`
		AnswerKey   string          `json:"answer"`
		Answers     []Answer        `json:"answers"`
		Explanation string          `json:"explanation"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	q.Prompt = wire.Prompt
	q.AnswerKey = wire.AnswerKey
	q.Answers = wire.Answers
	q.Explanation = wire.Explanation
	q.Options = nil

	if len(wire.Options) == 0 || bytes.Equal(wire.Options, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(wire.Options))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("question options: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		letter, _ := keyTok.(string)
		var text string
		if err := dec.Decode(&text); err != nil {
			return fmt.Errorf("question option %q: %w", letter, err)
		}
		q.Options = append(q.Options, LetterOption{Letter: letter, Text: text})
	}
	return nil
}

// MarshalJSON writes the expanded shape when answers are present, otherwise
// the legacy shape with its original letter order.
func (q RawQuestion) MarshalJSON() ([]byte, error) {
	if q.Answers != nil {
		return json.Marshal(struct {
			Prompt      string   `json:"question"`
			Answers     []Answer `json:"answers"`
			Explanation string   `json:"explanation,omitempty"`
		}{q.Prompt, q.Answers, q.Explanation})
	}
	var buf bytes.Buffer
	buf.WriteString(`{"question":`)
	writeJSONString(&buf, q.Prompt)
	buf.WriteString(`,"options":{`)
	for i, opt := range q.Options {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, opt.Letter)
		buf.WriteByte(':')
		writeJSONString(&buf, opt.Text)
	}
	buf.WriteString(`},"answer":`)
	writeJSONString(&buf, q.AnswerKey)
	if q.Explanation != "" {
		buf.WriteString(`,"explanation":`)
		writeJSONString(&buf, q.Explanation)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func writeJSONString(buf *bytes.Buffer, s string) {
	data, _ := json.Marshal(s)
	buf.Write(data)
}
