// Package files inventories the data directory: the raw station files, the
// cleaned CSVs and the generated reports.
//
//	discovery := files.NewDiscovery(paths)
//	inv, err := discovery.Inventory()
//	for _, f := range inv.Cleaned {
//	    fmt.Println(f.Country, f.Name, f.Size)
//	}
//
// Inventory never fails on a missing directory; absent expected raw files are
// listed in Inventory.Missing instead.
package files
