//go:build !cgo

package main

import "github.com/sirupsen/logrus"

func main() {
	logrus.Fatal("epfmi must be built with cgo enabled as a c-shared library")
}
