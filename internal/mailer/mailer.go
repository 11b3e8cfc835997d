package mailer

import "embed"

const (
	FromName               = "FoodieHub"
	maxRetires             = 3
	UserWelcomeTemplate    = "user_welcome.tmpl"
	ReviewApprovedTemplate = "review_approved.tmpl"
	ReviewRejectedTemplate = "review_rejected.tmpl"
)

//go:embed "templates"
var FS embed.FS

type Client interface {
	Send(templateFile, username, email string, data any) (int, error)
}
