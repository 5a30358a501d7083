package notebook

import (
	"encoding/json"
	"fmt"
	"strings"
)

// executedDocument is the read-only view of an engine-produced notebook.
// Only the fields extraction needs are decoded; everything else in the
// executed copy is ignored.
type executedDocument struct {
	Cells []executedCell `json:"cells"`
}

type executedCell struct {
	CellType string       `json:"cell_type"`
	Outputs  []cellOutput `json:"outputs"`
}

type cellOutput struct {
	OutputType string                   `json:"output_type"`
	Text       multiLineText            `json:"text,omitempty"`
	Data       map[string]multiLineText `json:"data,omitempty"`
}

// multiLineText absorbs the notebook format's habit of storing text either
// as one string or as a list of line strings.
type multiLineText string

func (m *multiLineText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*m = multiLineText(s)
		return nil
	}
	var lines []string
	if err := json.Unmarshal(data, &lines); err != nil {
		return fmt.Errorf("output text is neither string nor string list")
	}
	*m = multiLineText(strings.Join(lines, ""))
	return nil
}

// extractTerminalResult scans code cells in reverse order; the first one
// with at least one output wins, and its last output is the terminal
// result. Stream output is returned as raw text. Rendered values
// (execute_result/display_data) return their text/plain representation,
// parsed into a structure when the text is a literal mapping or sequence.
// ok=false when no code cell produced any output, or when the winning
// output renders to empty text.
func extractTerminalResult(doc *executedDocument) (interface{}, bool) {
	for i := len(doc.Cells) - 1; i >= 0; i-- {
		cell := doc.Cells[i]
		if cell.CellType != "code" || len(cell.Outputs) == 0 {
			continue
		}
		out := cell.Outputs[len(cell.Outputs)-1]
		switch out.OutputType {
		case "stream":
			if len(out.Text) == 0 {
				return nil, false
			}
			return string(out.Text), true
		case "execute_result", "display_data":
			text := string(out.Data["text/plain"])
			if text == "" {
				return nil, false
			}
			return parseLiteral(text), true
		default:
			return nil, false
		}
	}
	return nil, false
}

// parseLiteral best-effort parses the plain-text rendering of a value into
// a structure. Rendered values come out of the engine as Python literals,
// so single quotes and the True/False/None constants are normalized to
// JSON before decoding. Unparseable text is returned as-is.
func parseLiteral(text string) interface{} {
	trimmed := strings.TrimSpace(text)
	var v interface{}
	if err := json.Unmarshal([]byte(trimmed), &v); err == nil {
		return v
	}
	if err := json.Unmarshal([]byte(normalizePythonLiteral(trimmed)), &v); err == nil {
		return v
	}
	return text
}

// normalizePythonLiteral rewrites a Python repr into JSON: single-quoted
// strings become double-quoted, and bare True/False/None become
// true/false/null. Anything it cannot handle comes out mangled and simply
// fails the JSON decode upstream, which falls back to the raw text.
func normalizePythonLiteral(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		r := runes[i]
		switch {
		case r == '\'' || r == '"':
			quote := r
			b.WriteByte('"')
			i++
			for i < len(runes) {
				c := runes[i]
				if c == '\\' && i+1 < len(runes) {
					b.WriteRune(c)
					b.WriteRune(runes[i+1])
					i += 2
					continue
				}
				if c == quote {
					i++
					break
				}
				if c == '"' {
					b.WriteString(`\"`)
					i++
					continue
				}
				b.WriteRune(c)
				i++
			}
			b.WriteByte('"')
		case isIdentRune(r):
			start := i
			for i < len(runes) && isIdentRune(runes[i]) {
				i++
			}
			word := string(runes[start:i])
			switch word {
			case "True":
				b.WriteString("true")
			case "False":
				b.WriteString("false")
			case "None":
				b.WriteString("null")
			default:
				b.WriteString(word)
			}
		case r == '(':
			b.WriteByte('[')
			i++
		case r == ')':
			b.WriteByte(']')
			i++
		default:
			b.WriteRune(r)
			i++
		}
	}
	return b.String()
}

func isIdentRune(r rune) bool {
	return r == '_' ||
		(r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
