// Package docs provides generated OpenAPI documentation.
//
// Redline API
//
//	@title			Redline API
//	@version		1.0
//	@description	Contract analysis API for running staged LLM reviews and retrieving reports.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/danbryan/redline
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8690
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/redline/serve.go -o ./swagger --parseDependency --parseInternal
