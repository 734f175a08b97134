package main

// General API documentation for swaggo. Run `make swagger-gen` to generate docs.
//
// @title           spacelens API
// @version         1.0
// @description     Point-prompted photo segmentation with hand-off to a remote 3D generation service.
//
// @contact.name   spacelens maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
