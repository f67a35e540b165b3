// Package internal holds helpers shared by the goVerify root package and
// its subpackages. Nothing here is part of the public API.
package internal
