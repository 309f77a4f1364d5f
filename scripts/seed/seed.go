package main

import (
	"context"
	"errors"

	"github.com/inkpost/internal/service"
)

var samplePosts = []service.PostInput{
	{
		Title:   "Hello, World!",
		Content: "<p>Welcome to the blog. This is the very first post.</p>",
	},
	{
		Title:   "Writing Posts in Markdown",
		Format:  service.FormatMarkdown,
		Content: "Posts can be written in **markdown** as well.\n\n## Lists\n\n- one\n- two\n- three\n",
	},
	{
		Title:   "How Slugs Work",
		Content: "<p>Every post gets a URL derived from its title. Punctuation is dropped and spaces become hyphens.</p>",
	},
	{
		Title:   "Café Culture & Résumé Tips",
		Content: "<p>Accented letters are folded to plain ASCII in the URL.</p>",
	},
	{
		Title:   "Editing Without Breaking Links",
		Content: "<p>Changing only the body keeps the URL stable. Changing the title moves the post to a new URL.</p>",
	},
}

// seedPosts creates each post, skipping ones whose slug already exists so
// the command can be re-run safely.
func seedPosts(ctx context.Context, posts service.Posts, inputs []service.PostInput) (int, error) {
	created := 0
	for _, input := range inputs {
		_, err := posts.Create(ctx, input)
		switch {
		case err == nil:
			created++
		case errors.Is(err, service.ErrSlugConflict):
			// 已存在，跳过
		default:
			return created, err
		}
	}
	return created, nil
}
