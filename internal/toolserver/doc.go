// Package toolserver speaks the MCP stdio protocol and dispatches tool
// calls to the registered template and pipeline providers.
//
// Standard output belongs to the protocol; all logging goes to stderr.
// Every tool reply is a single text content element whose body is a
// JSON object, and handler failures become structured error records
// rather than transport errors.
package toolserver
