package main

import (
	"github.com/spf13/cobra"

	"github.com/loyd0/LoydFam-sub000/internal/repositories"
)

func newPeopleCmd(a *app) *cobra.Command {
	var (
		placeholders bool
		limit        int
		offset       int
	)

	cmd := &cobra.Command{
		Use:   "people [external-key]",
		Short: "List people, or show one person with events and relationships",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.openDB(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			if len(args) == 1 {
				person, err := repositories.GetPersonByKey(cmd.Context(), db, args[0])
				if err != nil {
					return err
				}
				return writeJSON(person)
			}

			people, err := repositories.ListPeople(cmd.Context(), db, repositories.PeopleFilter{
				IncludePlaceholders: placeholders,
				Limit:               limit,
				Offset:              offset,
			})
			if err != nil {
				return err
			}
			return writeJSON(people)
		},
	}

	cmd.Flags().BoolVar(&placeholders, "placeholders", false, "Include placeholder people")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of people")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of people to skip")
	return cmd
}
