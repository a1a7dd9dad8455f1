package sink

import (
	"fmt"
	"sort"

	"github.com/fleetscan/fleetscan/schema"
)

// PrintStoreStatus prints result store status information.
func PrintStoreStatus(status schema.StoreStatus) {
	fmt.Printf("Store Backend: %s\n", status.Backend)
	fmt.Printf("Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	fmt.Printf("Total Repositories: %d\n", status.Repositories)
	if status.Repositories > 0 {
		fmt.Printf("Last Updated: %s\n", status.LastUpdated.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("Table Sizes:")
	tables := make([]string, 0, len(status.TableCounts))
	for table := range status.TableCounts {
		tables = append(tables, table)
	}
	sort.Strings(tables)
	for _, table := range tables {
		fmt.Printf("  %s: %d rows\n", table, status.TableCounts[table])
	}
}
