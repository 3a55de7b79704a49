package axpert

import (
	"fmt"
	"strconv"
)

// DecodeStatus maps a status frame to readings using the model's status table.
func DecodeStatus(frame Frame, model *Model) (Readings, error) {
	return decodeFields(frame, model.StatusFields, model.MinStatusFields)
}

// DecodeSettings maps a settings frame to readings using the model's settings table.
func DecodeSettings(frame Frame, model *Model) (Readings, error) {
	return decodeFields(frame, model.SettingsFields, model.MinSettingsFields)
}

func decodeFields(frame Frame, table []Field, minFields int) (Readings, error) {
	if !frame.WellFormed() {
		return nil, fmt.Errorf("%w: bad marker in %q", ErrMalformedFrame, frame.Raw)
	}
	if !frame.Terminated {
		return nil, fmt.Errorf("%w: missing terminator", ErrMalformedFrame)
	}
	fields := frame.Fields()
	if len(fields) < minFields {
		return nil, fmt.Errorf("%w: got %d fields, want at least %d", ErrMalformedFrame, len(fields), minFields)
	}

	readings := Readings{}
	for i, token := range fields {
		if i >= len(table) {
			break
		}
		f := table[i]
		switch f.Kind {
		case FIELD_NUMBER:
			readings[f.Name] = coerceNumber(token)
		case FIELD_TENTHS:
			readings[f.Name] = coerceNumber(token) / 10
		case FIELD_MODE:
			if label, ok := f.Table.Label(token); ok {
				readings[f.Name] = label
			}
		case FIELD_PRIORITY:
			if label, ok := f.Table.LabelForValue(token); ok {
				readings[f.Name] = label
			}
		}
	}
	return readings, nil
}

// non-numeric tokens read as 0
func coerceNumber(token string) float64 {
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0
	}
	return v
}
