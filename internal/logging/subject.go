package logging

import "strings"

// FormatSubject builds the job/stage subject shown in console output.
func FormatSubject(seq, stage string) string {
	seq = strings.TrimSpace(seq)
	stage = strings.TrimSpace(stage)
	switch {
	case seq != "" && stage != "":
		return "Job #" + seq + " (" + stage + ")"
	case seq != "":
		return "Job #" + seq
	default:
		return stage
	}
}
