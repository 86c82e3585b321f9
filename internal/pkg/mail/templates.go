package mail

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

const brandColor = "#7c3aed"

func layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := io.WriteString(w, `<!DOCTYPE html><html><head><meta charset="utf-8"><title>`+
			templ.EscapeString(title)+`</title></head>`+
			`<body style="font-family:Arial,sans-serif;color:#111;max-width:560px;margin:0 auto;padding:24px">`+
			`<h1 style="color:`+brandColor+`;font-size:22px">YOLO Trainer</h1>`); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `<p style="color:#666;font-size:12px">YOLO Trainer</p></body></html>`)
		return err
	})
}

func button(link, label string) string {
	return `<p><a href="` + templ.EscapeString(link) + `" style="display:inline-block;background:` + brandColor +
		`;color:#fff;padding:12px 20px;border-radius:6px;text-decoration:none">` + templ.EscapeString(label) + `</a></p>`
}

func verifyEmailBody(name, link string) templ.Component {
	return layout("Verify your email", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p>Hi `+templ.EscapeString(name)+`,</p>`+
			`<p>Thanks for signing up. Please confirm your email address. The link expires in 24 hours.</p>`+
			button(link, "Verify email"))
		return err
	}))
}

func resetPasswordBody(name, link string) templ.Component {
	return layout("Reset your password", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, `<p>Hi `+templ.EscapeString(name)+`,</p>`+
			`<p>We received a request to reset your password. The link expires in 1 hour.</p>`+
			button(link, "Reset password")+
			`<p>If you did not request this, you can ignore this email.</p>`)
		return err
	}))
}

func contactBody(name, email, message string) templ.Component {
	return layout("Contact form", templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		paragraphs := strings.Split(templ.EscapeString(message), "\n")
		_, err := io.WriteString(w, `<p><strong>`+templ.EscapeString(name)+`</strong> &lt;`+templ.EscapeString(email)+`&gt;</p>`+
			`<p>`+strings.Join(paragraphs, "<br>")+`</p>`)
		return err
	}))
}
