// Package main provides the entry point for the docingest CLI.
//
// docingest turns a documentation website into a knowledge base. It looks for
// a published llms.txt index, falls back to crawling, extracts clean content
// with site-specific adapters and keeps the result up to date with
// incremental updates.
//
// Usage:
//
//	docingest add <url>
//	docingest update <kb-id>
//	docingest history <kb-id>
//
// See --help for all available options.
package main

// main is the entry point for docingest.
func main() {
	Execute()
}
