package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionsJSON bool

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "Inspect and manage vector collections",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig(), false)
		if err != nil {
			return err
		}
		defer st.Close()

		names, err := st.ListCollections(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to list collections: %w", err)
		}
		if collectionsJSON {
			return printJSON(names)
		}
		if len(names) == 0 {
			fmt.Println("No collections.")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	},
}

var collectionsInfoCmd = &cobra.Command{
	Use:   "info <name>",
	Short: "Show collection statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig(), false)
		if err != nil {
			return err
		}
		defer st.Close()

		info, err := st.CollectionInfo(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if collectionsJSON {
			return printJSON(info)
		}
		fmt.Printf("Collection: %s\n", info.Name)
		fmt.Printf("  Status:  %s\n", info.Status)
		fmt.Printf("  Points:  %d\n", info.PointsCount)
		fmt.Printf("  Vectors: %d (%d indexed)\n", info.VectorsCount, info.IndexedVectorsCount)
		return nil
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a collection and its points",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(GetConfig(), false)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.DeleteCollection(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
		fmt.Printf("Deleted collection %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionsCmd)
	collectionsCmd.PersistentFlags().BoolVar(&collectionsJSON, "json", false, "output as JSON")
	collectionsCmd.AddCommand(collectionsListCmd, collectionsInfoCmd, collectionsDeleteCmd)
}
