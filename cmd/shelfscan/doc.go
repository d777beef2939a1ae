// Command shelfscan runs the barcode inventory server and offers CLI access
// to scanning, items and configuration.
package main
