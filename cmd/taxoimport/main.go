// Command taxoimport previews a taxonomy import file against a snapshot of
// existing entities, exports a snapshot in the import format, and checks
// import files offline.
package main

func main() {
	Execute()
}
