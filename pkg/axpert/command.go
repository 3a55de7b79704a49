package axpert

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
)

const (
	ACK_PREFIX = "(ACK"
)

// SetCommand is one entry of a model's set-command catalogue. Enumerated
// commands map a label to a precomputed frame; value commands are built as
// Prefix + formatted value and encoded with the CRC trailer.
type SetCommand struct {
	Prefix string
	Table  ModeTable
	frames map[string][]byte

	Format  string
	Step    float64
	Options func(ratedVoltage float64) []float64
	Range   func(ratedVoltage float64) (float64, float64)
}

func (c SetCommand) Enumerated() bool {
	return c.Table != nil
}

// Choices lists the accepted values of an enumerated or option-set command,
// nil for range commands.
func (c SetCommand) Choices(ratedVoltage float64) []string {
	if c.Enumerated() {
		return c.Table.Labels()
	}
	if c.Options == nil {
		return nil
	}
	options := c.Options(ratedVoltage)
	choices := make([]string, len(options))
	for i, o := range options {
		choices[i] = FormatChoice(o)
	}
	return choices
}

// FormatChoice renders an option-set value the way Choices lists it.
func FormatChoice(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func enumCommand(prefix string, table ModeTable) SetCommand {
	frames := make(map[string][]byte, len(table))
	for _, o := range table {
		frames[o.Label] = EncodeCommand([]byte(prefix + o.Code))
	}
	return SetCommand{Prefix: prefix, Table: table, frames: frames}
}

var inverterCommands = map[string]SetCommand{
	READING_OUTPUT_SOURCE_PRIORITY:      enumCommand("POP", OutputSourcePriorityTable),
	READING_CHARGER_PRIORITY:            enumCommand("PCP", ChargerPriorityTable),
	READING_BATTERY_RECHARGE_VOLTAGE:    {Prefix: "PBCV", Format: "%04.1f", Step: 0.1, Options: rechargeVoltageOptions},
	READING_BATTERY_REDISCHARGE_VOLTAGE: {Prefix: "PBDV", Format: "%04.1f", Step: 0.1, Options: redischargeVoltageOptions},
	READING_BATTERY_BULK_VOLTAGE:        {Prefix: "PCVV", Format: "%04.1f", Step: 0.1, Range: chargeVoltageRange},
	READING_BATTERY_FLOAT_VOLTAGE:       {Prefix: "PBFT", Format: "%04.1f", Step: 0.1, Range: chargeVoltageRange},
}

var chargeControllerCommands = map[string]SetCommand{
	READING_ABSORPTION_VOLTAGE: {Prefix: "PBAV", Format: "%05.2f", Step: 0.01, Range: controllerVoltageRange},
	READING_FLOAT_VOLTAGE:      {Prefix: "PBFV", Format: "%05.2f", Step: 0.01, Range: controllerVoltageRange},
}

var (
	rechargeOptions = map[int][]float64{
		12: {11, 11.3, 11.5, 11.8, 12, 12.3, 12.5, 12.8},
		24: {22, 22.5, 23, 23.5, 24, 24.5, 25, 25.5},
		48: {44, 45, 46, 47, 48, 49, 50, 51},
	}
	// 0 means "battery fully charged"
	redischargeOptions = map[int][]float64{
		12: {0, 12, 12.3, 12.5, 12.8, 13, 13.3, 13.5, 13.8, 14, 14.3, 14.5},
		24: {0, 24, 24.5, 25, 25.5, 26, 26.5, 27, 27.5, 28, 28.5, 29},
		48: {0, 48, 49, 50, 51, 52, 53, 54, 55, 56, 57, 58},
	}
)

// nominalVoltage maps a rated battery voltage to 12, 24 or 48. Unknown (0)
// falls back to 48.
func nominalVoltage(rated float64) int {
	switch {
	case rated <= 0:
		return 48
	case rated < 18:
		return 12
	case rated < 36:
		return 24
	default:
		return 48
	}
}

func rechargeVoltageOptions(rated float64) []float64 {
	return rechargeOptions[nominalVoltage(rated)]
}

func redischargeVoltageOptions(rated float64) []float64 {
	return redischargeOptions[nominalVoltage(rated)]
}

// 48.0 - 58.4 V for a 48 V bank, scaled for 12/24 V
func chargeVoltageRange(rated float64) (float64, float64) {
	scale := float64(nominalVoltage(rated)) / 48
	return 48 * scale, 58.4 * scale
}

func controllerVoltageRange(rated float64) (float64, float64) {
	scale := float64(nominalVoltage(rated)) / 48
	return 48 * scale, 64 * scale
}

// BuildSetCommand validates name and value against the model's catalogue and
// returns the complete frame to send. No I/O is performed.
func BuildSetCommand(model *Model, name, value string, ratedVoltage float64) ([]byte, error) {
	cmd, ok := model.Commands[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q for %s", ErrUnknownCommand, name, model.Id)
	}

	if cmd.Enumerated() {
		frame, ok := cmd.frames[value]
		if !ok {
			return nil, fmt.Errorf("%w: %q for %s, expected one of %v", ErrUnknownValue, value, name, cmd.Table.Labels())
		}
		return slices.Clone(frame), nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %q for %s is not a number", ErrUnknownValue, value, name)
	}
	if cmd.Options != nil {
		if !containsOption(cmd.Options(ratedVoltage), v) {
			return nil, fmt.Errorf("%w: %v for %s, expected one of %v", ErrUnknownValue, v, name, cmd.Options(ratedVoltage))
		}
	}
	if cmd.Range != nil {
		lo, hi := cmd.Range(ratedVoltage)
		if v < lo || v > hi {
			return nil, fmt.Errorf("%w: %v for %s, expected %.1f-%.1f", ErrUnknownValue, v, name, lo, hi)
		}
	}
	return EncodeCommand([]byte(cmd.Prefix + fmt.Sprintf(cmd.Format, v))), nil
}

func containsOption(options []float64, v float64) bool {
	for _, o := range options {
		if math.Abs(o-v) < 0.001 {
			return true
		}
	}
	return false
}

// Acknowledged reports whether a set-command response is a positive ACK.
func Acknowledged(frame Frame) bool {
	return strings.HasPrefix(string(frame.Raw), ACK_PREFIX)
}
