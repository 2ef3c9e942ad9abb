package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           deviced API
// @version         1.0
// @description     HTTP API for device-level network residency and execution.
//
// @contact.name   deviced maintainers
// @contact.url    https://github.com/your-org/deviced
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
