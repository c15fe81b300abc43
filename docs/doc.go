// Package docs provides generated OpenAPI documentation.
//
// Papertrail API
//
//	@title			Papertrail API
//	@version		1.0
//	@description	Fact-checking pipeline API for claim extraction, streaming, and verification.
//
//	@host		localhost:8000
//	@BasePath	/
//
//	@schemes	http https
package docs
