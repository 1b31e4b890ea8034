// Package archive stores a rendered copy of every published newsletter.
package archive

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/oksasatya/newsletter/internal/application"
	"github.com/oksasatya/newsletter/pkg/helpers"
	mailtpl "github.com/oksasatya/newsletter/pkg/mailer/templates"
)

const issueTemplate = "issue"

// ObjectWriter uploads one object and returns where it can be read.
type ObjectWriter interface {
	Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error)
}

// Archive renders issues to HTML and writes them to newsletters/<id>.html.
type Archive struct {
	Writer  ObjectWriter
	AppName string
}

func New(w ObjectWriter, appName string) *Archive {
	return &Archive{Writer: w, AppName: appName}
}

func (a *Archive) Store(ctx context.Context, issue application.Issue) (string, error) {
	html, err := mailtpl.RenderHTML(issueTemplate, map[string]any{
		"ID":          issue.ID.String(),
		"Title":       issue.Title,
		"Content":     issue.Content,
		"AppName":     a.AppName,
		"PublishedAt": issue.PublishedAt.UTC().Format(time.RFC1123),
	})
	if err != nil {
		return "", err
	}
	return a.Writer.Upload(ctx, ObjectPath(issue), "text/html; charset=utf-8", strings.NewReader(html))
}

func ObjectPath(issue application.Issue) string {
	return fmt.Sprintf("newsletters/%s.html", issue.ID)
}

// GCS writes objects into one Cloud Storage bucket.
type GCS struct {
	Client *storage.Client
	Bucket string
}

func (g *GCS) Upload(ctx context.Context, objectPath, contentType string, r io.Reader) (string, error) {
	return helpers.WriteGCSObject(ctx, g.Client, g.Bucket, objectPath, contentType, r)
}

var _ application.Archive = (*Archive)(nil)
