package main

import "spacelens/internal/cli"

func main() { cli.Main() }
