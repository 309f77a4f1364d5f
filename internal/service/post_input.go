package service

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/inkpost/internal/db"
	"github.com/inkpost/internal/slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
)

// PostInput is the explicit schema for create and update requests.
type PostInput struct {
	Title   string `json:"title" validate:"required,max=255"`
	Content string `json:"content" validate:"required,richtext"`
	// Format is html (default, rich-text editor output) or markdown, which is
	// converted to HTML before it is stored.
	Format string `json:"format" validate:"omitempty,oneof=html markdown"`
}

var (
	validate = newValidator()

	markdownEngine = goldmark.New(
		goldmark.WithExtensions(extension.GFM, extension.Linkify, extension.Table),
		goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
	)
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	_ = v.RegisterValidation("richtext", func(fl validator.FieldLevel) bool {
		return !IsEmptyContent(fl.Field().String())
	})
	return v
}

// IsEmptyContent reports whether content is blank or the editor's empty document.
func IsEmptyContent(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed == "" || trimmed == db.EmptyEditorContent
}

// PreviewSlug returns the slug a title would get before any collision handling.
func PreviewSlug(title string) string {
	return slug.Derive(strings.TrimSpace(title))
}

// preparedPost is a validated input together with its candidate slug.
type preparedPost struct {
	Title     string
	Content   string
	Candidate string
}

// preparePost trims and validates input, converts markdown and derives the
// candidate slug. Every violation is collected into one *ValidationError.
func preparePost(input PostInput) (preparedPost, error) {
	normalized := PostInput{
		Title:   strings.TrimSpace(input.Title),
		Content: input.Content,
		Format:  strings.ToLower(strings.TrimSpace(input.Format)),
	}

	verr := &ValidationError{}
	if err := validate.Struct(normalized); err != nil {
		fieldErrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return preparedPost{}, err
		}
		for _, fe := range fieldErrs {
			verr.add(fe.Field(), fieldMessage(fe))
		}
	}

	candidate := ""
	if !verr.Has("title") {
		candidate = slug.Derive(normalized.Title)
		if candidate == "" {
			verr.add("title", "Title must contain at least one letter or digit")
		}
	}

	if len(verr.Fields) > 0 {
		return preparedPost{}, verr
	}

	content := normalized.Content
	if normalized.Format == FormatMarkdown {
		converted, err := markdownToHTML(content)
		if err != nil {
			return preparedPost{}, &ValidationError{Fields: []FieldError{{Field: "content", Message: "Content is not valid markdown"}}}
		}
		// 只含链接定义等内容的 markdown 渲染后为空
		if IsEmptyContent(converted) {
			return preparedPost{}, &ValidationError{Fields: []FieldError{{Field: "content", Message: "Content is required"}}}
		}
		content = converted
	}

	return preparedPost{Title: normalized.Title, Content: content, Candidate: candidate}, nil
}

func fieldMessage(fe validator.FieldError) string {
	label := strings.ToUpper(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required", "richtext":
		return label + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", label, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", label, strings.ReplaceAll(fe.Param(), " ", ", "))
	default:
		return label + " is invalid"
	}
}

func markdownToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(source), &buf); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}
