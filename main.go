/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/ahmadmdabit/MeetingSystem-sub001/cmd"

func main() {
	cmd.Execute()
}
