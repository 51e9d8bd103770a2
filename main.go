/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/agriland/marketplace/cmd"

func main() {
	cmd.Execute()
}
