package notifications

import (
	"fmt"
	"github.com/Fuonder/marketledger.git/internal/models"
	"strings"
	"text/template"
)

var messageTemplates = template.Must(template.New("notifications").Option("missingkey=zero").Parse(`
{{- define "withdrawal_paid" -}}
Your withdrawal of {{.amount}} {{.currency}} has been paid.{{if .note}} Note: {{.note}}{{end}}
{{- end -}}
{{- define "withdrawal_rejected" -}}
Your withdrawal of {{.amount}} {{.currency}} was rejected: {{.note}}. The amount was returned to your referral balance.
{{- end -}}
{{- define "withdrawal_cancelled" -}}
Your withdrawal of {{.amount}} {{.currency}} was cancelled. The amount was returned to your referral balance.
{{- end -}}
{{- define "commission_credited" -}}
You earned {{.amount}} {{.currency}} referral commission for order {{.order_id}}.
{{- end -}}
{{- define "topup_completed" -}}
Your balance was topped up by {{.amount}} {{.currency}}.
{{- end -}}
`))

// Render builds the text of a notification from its kind and payload.
func Render(n models.Notification) (string, error) {
	t := messageTemplates.Lookup(string(n.Kind))
	if t == nil {
		return "", fmt.Errorf("no template for notification kind %q", n.Kind)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, n.Payload); err != nil {
		return "", fmt.Errorf("render %s: %w", n.Kind, err)
	}
	return sb.String(), nil
}

// ReasonCode is a canned rejection reason an admin can pick instead of typing a note.
type ReasonCode string

const (
	ReasonInvalidDetails ReasonCode = "invalid_details"
	ReasonHolderMismatch ReasonCode = "holder_mismatch"
	ReasonSuspicious     ReasonCode = "suspicious_activity"
	ReasonLimitExceeded  ReasonCode = "limit_exceeded"
)

var reasonTexts = map[ReasonCode]string{
	ReasonInvalidDetails: "the payout details are invalid",
	ReasonHolderMismatch: "the account holder name does not match your profile",
	ReasonSuspicious:     "the request was flagged for review",
	ReasonLimitExceeded:  "the payout limit for this method has been exceeded",
}

// RejectionNote expands a reason code into note text. An extra comment is appended when given.
func RejectionNote(code ReasonCode, comment string) (string, error) {
	text, ok := reasonTexts[code]
	if !ok {
		return "", fmt.Errorf("unknown rejection reason %q", code)
	}
	if comment = strings.TrimSpace(comment); comment != "" {
		return text + " (" + comment + ")", nil
	}
	return text, nil
}
