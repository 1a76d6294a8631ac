/*
Package notify delivers reports via console output, email and a Telegram chat bot.
*/
package notify

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// Reporter builds one complete report per call.
type Reporter interface {
	BuildReport(ctx context.Context) string
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(ctx context.Context) string

func (f ReporterFunc) BuildReport(ctx context.Context) string { return f(ctx) }

// PrintReport writes report to w between separator rules.
func PrintReport(w io.Writer, report string) error {
	rule := strings.Repeat("=", 43)
	_, err := fmt.Fprintf(w, "\n%s\n%s%s\n", rule, strings.TrimRight(report, "\n")+"\n", rule)
	return err
}
