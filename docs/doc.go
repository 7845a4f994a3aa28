// Package docs provides generated OpenAPI documentation.
//
// Docsmith API
//
//	@title			Docsmith API
//	@version		1.0
//	@description	Documentation generation API for submitting repositories and retrieving compiled docs.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/docsmith
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8001
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/docsmith/serve.go -o ./swagger --parseDependency --parseInternal
