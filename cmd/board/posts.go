package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-board-backend/internal/domain"
	"github.com/tbourn/go-board-backend/internal/repo"
)

var postsCmd = &cobra.Command{
	Use:   "posts",
	Short: "Manage posts",
}

var postOpts struct {
	author  uint
	title   string
	content string
}

var postsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a post so members can comment on it",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, db, err := setup()
		if err != nil {
			return err
		}
		defer closeDB(db)

		p, err := createPost(cmd.Context(), db, postOpts.author, postOpts.title, postOpts.content)
		if err != nil {
			return err
		}
		log.Info().Uint("post_id", p.ID).Uint("author_id", p.MemberID).Msg("post created")
		fmt.Fprintln(cmd.OutOrStdout(), p.ID)
		return nil
	},
}

// createPost validates the input and inserts the post. An author that does
// not exist is reported by id rather than as a raw constraint failure.
func createPost(ctx context.Context, db *gorm.DB, author uint, title, content string) (*domain.Post, error) {
	title = strings.TrimSpace(title)
	if author == 0 {
		return nil, errors.New("--author is required")
	}
	if title == "" {
		return nil, errors.New("--title must not be empty")
	}

	p, err := repo.CreatePost(ctx, db, author, title, content)
	if repo.IsForeignKey(err) {
		return nil, fmt.Errorf("author %d: no such member", author)
	}
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

func init() {
	postsCreateCmd.Flags().UintVar(&postOpts.author, "author", 0, "member id of the post author")
	postsCreateCmd.Flags().StringVar(&postOpts.title, "title", "", "post title")
	postsCreateCmd.Flags().StringVar(&postOpts.content, "content", "", "post body")
	postsCmd.AddCommand(postsCreateCmd)

	rootCmd.AddCommand(postsCmd)
}
