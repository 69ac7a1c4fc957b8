package main

import (
	"fmt"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"

	"github.com/hypergopher/downblog"
)

// List flags
const (
	limitFlag       = "limit"
	pageFlag        = "page"
	sortFieldFlag   = "sort-field"
	sortOrderFlag   = "sort-order"
	filterFieldFlag = "filter-field"
	filterValueFlag = "filter-value"
	searchFlag      = "search"
)

// Post field flags
const (
	titleFlag  = "title"
	textFlag   = "text"
	authorFlag = "author"
)

func newListCommand(a *app) *cobra.Command {
	listFlags := map[string]cobraflags.Flag{
		limitFlag:       &cobraflags.StringFlag{Name: limitFlag, Value: "", Usage: "Posts per page (default 100)"},
		pageFlag:        &cobraflags.StringFlag{Name: pageFlag, Value: "", Usage: "Page number, starting at 1"},
		sortFieldFlag:   &cobraflags.StringFlag{Name: sortFieldFlag, Value: "", Usage: "Field to sort by"},
		sortOrderFlag:   &cobraflags.StringFlag{Name: sortOrderFlag, Value: "", Usage: "Sort order (asc, desc)"},
		filterFieldFlag: &cobraflags.StringFlag{Name: filterFieldFlag, Value: "", Usage: "Field that must equal --filter-value"},
		filterValueFlag: &cobraflags.StringFlag{Name: filterValueFlag, Value: "", Usage: "Value of --filter-field"},
		searchFlag:      &cobraflags.StringFlag{Name: searchFlag, Value: "", Usage: "Case-sensitive prefix of the post text"},
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List posts without their text",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			page, err := a.blog.List(cmd.Context(), downblog.QueryParams{
				Limit:       listFlags[limitFlag].GetString(),
				Page:        listFlags[pageFlag].GetString(),
				SortField:   listFlags[sortFieldFlag].GetString(),
				SortOrder:   listFlags[sortOrderFlag].GetString(),
				FilterField: listFlags[filterFieldFlag].GetString(),
				FilterValue: listFlags[filterValueFlag].GetString(),
				Search:      listFlags[searchFlag].GetString(),
			})
			if err != nil {
				return err
			}
			return printJSON(cmd, page)
		}),
	}

	cobraflags.RegisterMap(listCmd, listFlags)
	return listCmd
}

func newGetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a post, including its text",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			post, err := a.blog.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(cmd, post)
		}),
	}
}

func postFieldFlags() map[string]cobraflags.Flag {
	return map[string]cobraflags.Flag{
		titleFlag:  &cobraflags.StringFlag{Name: titleFlag, Value: "", Usage: "Post title"},
		textFlag:   &cobraflags.StringFlag{Name: textFlag, Value: "", Usage: "Post text"},
		authorFlag: &cobraflags.StringFlag{Name: authorFlag, Value: "", Usage: "Post author"},
	}
}

func postFieldsFrom(flags map[string]cobraflags.Flag) downblog.PostFields {
	return downblog.PostFields{
		Title:  flags[titleFlag].GetString(),
		Text:   flags[textFlag].GetString(),
		Author: flags[authorFlag].GetString(),
	}
}

func newSubmitCommand(a *app) *cobra.Command {
	submitFlags := postFieldFlags()

	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Create a new post",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			post, err := a.blog.Submit(cmd.Context(), postFieldsFrom(submitFlags))
			if err != nil {
				return err
			}
			return printJSON(cmd, post)
		}),
	}

	cobraflags.RegisterMap(submitCmd, submitFlags)
	return submitCmd
}

func newEditCommand(a *app) *cobra.Command {
	editFlags := postFieldFlags()

	editCmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Replace the title, text and author of a post",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			post, err := a.blog.Edit(cmd.Context(), args[0], postFieldsFrom(editFlags))
			if err != nil {
				return err
			}
			return printJSON(cmd, post)
		}),
	}

	cobraflags.RegisterMap(editCmd, editFlags)
	return editCmd
}

func newDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete posts. Missing ids are ignored",
		Args:  cobra.MinimumNArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			if err := a.blog.Delete(cmd.Context(), args...); err != nil {
				return err
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %d id(s)\n", len(args))
			return err
		}),
	}
}

func newAuthorsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "authors",
		Short: "List the distinct authors",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			authors, err := a.blog.Authors(cmd.Context())
			if err != nil {
				return err
			}
			for _, author := range authors {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), author); err != nil {
					return err
				}
			}
			return nil
		}),
	}
}

func newCountCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Print the number of posts",
		Args:  cobra.NoArgs,
		RunE: a.run(func(cmd *cobra.Command, _ []string) error {
			total, err := a.blog.Count(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), total)
			return err
		}),
	}
}

func newSeedCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <file.yaml|file.toml|file.md|dir>",
		Short: "Submit every post listed in a seed file or directory",
		Args:  cobra.ExactArgs(1),
		RunE: a.run(func(cmd *cobra.Command, args []string) error {
			entries, err := downblog.LoadSeed(args[0])
			if err != nil {
				return err
			}

			posts, err := a.blog.Seed(cmd.Context(), entries)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "seeded %d post(s)\n", len(posts))
			return err
		}),
	}
}
