package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// StripCodeFence removes a surrounding markdown code fence (```json ... ```), if any.
func StripCodeFence(raw []byte) []byte {
	s := bytes.TrimSpace(raw)
	if !bytes.HasPrefix(s, []byte("```")) {
		return s
	}
	if i := bytes.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = bytes.TrimPrefix(s, []byte("```"))
	}
	s = bytes.TrimSpace(s)
	s = bytes.TrimSuffix(s, []byte("```"))
	return bytes.TrimSpace(s)
}

// SanitizeStringFields makes a model answer friendlier to a flat all-string schema:
//   - strips a markdown code fence
//   - missing or null fields become ""
//   - numbers and booleans become their string form (numbers keep their digits)
//   - strings are trimmed
//   - keys outside fields are dropped
//
// Objects and arrays are left alone so schema validation still rejects them.
// The returned slice lists what was touched, for logging.
func SanitizeStringFields(raw []byte, fields []string, logger *slog.Logger) ([]byte, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dec := json.NewDecoder(bytes.NewReader(StripCodeFence(raw)))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}
	if m == nil {
		return nil, nil, fmt.Errorf("sanitize: decode: top-level value is null")
	}
	if dec.More() {
		return nil, nil, fmt.Errorf("sanitize: decode: trailing data after object")
	}

	allowed := make(map[string]struct{}, len(fields))
	var changed []string
	for _, k := range fields {
		allowed[k] = struct{}{}
		switch t := m[k].(type) {
		case nil:
			if _, present := m[k]; present {
				changed = append(changed, k+"(null)")
			} else {
				changed = append(changed, k+"(missing)")
			}
			m[k] = ""
		case string:
			if s := strings.TrimSpace(t); s != t {
				m[k] = s
				changed = append(changed, k+"(trim)")
			}
		case json.Number:
			m[k] = t.String()
			changed = append(changed, k+"(number)")
		case bool:
			m[k] = strconv.FormatBool(t)
			changed = append(changed, k+"(bool)")
		}
	}
	for k := range m {
		if _, ok := allowed[k]; !ok {
			delete(m, k)
			changed = append(changed, k+"(unknown)")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, changed, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(changed) > 0 {
		logger.Warn("llm.extract.sanitize_applied", "changed", changed)
	}
	return out, changed, nil
}
