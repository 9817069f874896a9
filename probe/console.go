// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package probe

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// Console is a line-oriented debugger for games running without an
// inspector. It serves the same breaks as Probe.Debug, reading
// commands from a terminal.
type Console struct {
	probe  *Probe
	in     *bufio.Scanner
	out    io.Writer
	prompt string

	options map[string]string

	// target is the function "finish" waits to return into.
	target string
}

// NewConsole creates a console reading commands from in and writing to
// out. Breakpoints and quit requests act on probe.
func NewConsole(probe *Probe, in io.Reader, out io.Writer) *Console {
	return &Console{
		probe:   probe,
		in:      bufio.NewScanner(in),
		out:     out,
		prompt:  "debug> ",
		options: map[string]string{"variable_prefix": ""},
	}
}

// Option returns the value of a "set" option.
func (c *Console) Option(key string) string { return c.options[key] }

// Debug stops at a break and runs the command loop until execution
// resumes or input ends. frames[0] is the innermost frame.
func (c *Console) Debug(canContinue bool, reason string, frames []Frame) Resume {
	if c.target != "" {
		if len(frames) > 0 && frames[0].Function != c.target {
			return ResumeNext
		}
		c.target = ""
	}

	current := 0
	c.banner(reason, frames, current)
	for {
		fmt.Fprint(c.out, c.prompt)
		if !c.in.Scan() {
			fmt.Fprintln(c.out)
			return ResumeContinue
		}
		line := strings.TrimSpace(c.in.Text())
		fields := strings.Fields(line)
		command := ""
		if len(fields) > 0 {
			command = fields[0]
		}

		switch command {
		case "":
			c.banner(reason, frames, current)
		case "c", "continue":
			return ResumeContinue
		case "bt", "backtrace":
			for index := range frames {
				marker := " "
				if index == current {
					marker = "*"
				}
				c.printf("%s%s", marker, describeFrame(frames, index))
			}
		case "fr", "frame":
			if len(fields) == 1 {
				c.printf("*%s", describeFrame(frames, current))
				break
			}
			index, err := strconv.Atoi(fields[1])
			if err != nil || index < 0 || index >= len(frames) {
				c.printf("Error: Invalid frame.")
				break
			}
			current = index
			c.printf("*%s", describeFrame(frames, current))
		case "set":
			c.set(fields[1:])
		case "lv", "locals":
			c.printVariables(frameBag(frames, current, func(frame Frame) []Variable { return frame.Locals }))
		case "mv", "members":
			c.printVariables(frameBag(frames, current, func(frame Frame) []Variable { return frame.Members }))
		case "gv", "globals":
			c.printVariables(frameBag(frames, current, func(frame Frame) []Variable { return frame.Globals }))
		case "p", "print":
			if len(fields) < 2 {
				c.printf("Usage: print <expr>")
				break
			}
			c.printf("%s", c.evaluate(frames, current, fields[1]))
		case "s", "step":
			if !canContinue {
				c.printf("Error: Execution cannot continue from this break.")
				break
			}
			return ResumeStep
		case "n", "next":
			if !canContinue {
				c.printf("Error: Execution cannot continue from this break.")
				break
			}
			return ResumeNext
		case "fin", "finish":
			if target, ok := callerFunction(frames); ok {
				c.target = target
				return ResumeNext
			}
			c.printf("Error: Reached last frame.")
		case "br", "break":
			c.breakpoint(fields[1:], true)
		case "delete":
			c.breakpoint(fields[1:], false)
		case "q", "quit":
			c.probe.ClearBreakpoints()
			c.probe.Quit()
			return ResumeContinue
		case "h", "help":
			c.help()
		default:
			c.printf("Error: Invalid command, enter \"help\" for assistance.")
		}
	}
}

func (c *Console) printf(format string, args ...any) {
	fmt.Fprintf(c.out, format+"\n", args...)
}

func (c *Console) banner(reason string, frames []Frame, current int) {
	c.printf("")
	c.printf("Debugger Break, Reason: '%s'", reason)
	if len(frames) > 0 {
		c.printf("*%s", describeFrame(frames, current))
	}
	c.printf("Enter \"help\" for assistance.")
}

func describeFrame(frames []Frame, index int) string {
	frame := frames[index]
	return fmt.Sprintf("Frame %d - %s:%d in function '%s'", index, frame.File, frame.Line, frame.Function)
}

func frameBag(frames []Frame, index int, bag func(Frame) []Variable) []Variable {
	if index >= len(frames) {
		return nil
	}
	return bag(frames[index])
}

// callerFunction returns the first function up the stack that differs
// from the innermost one.
func callerFunction(frames []Frame) (string, bool) {
	if len(frames) == 0 {
		return "", false
	}
	for _, frame := range frames[1:] {
		if frame.Function != frames[0].Function {
			return frame.Function, true
		}
	}
	return "", false
}

func (c *Console) printVariables(variables []Variable) {
	prefix := c.options["variable_prefix"]
	for _, variable := range variables {
		value := fmt.Sprint(encodeValue(variable.Value))
		if prefix == "" {
			c.printf("%s: %s", variable.Name, value)
			continue
		}
		c.printf("%s:", variable.Name)
		for _, line := range strings.Split(value, "\n") {
			c.printf("%s%s", prefix, line)
		}
	}
}

// evaluate resolves a variable name against the frame's locals, then
// members, then globals. "self.name" reads a member.
func (c *Console) evaluate(frames []Frame, index int, expression string) string {
	if index >= len(frames) {
		return "Error: No frame."
	}
	frame := frames[index]
	bags := [][]Variable{frame.Locals, frame.Members, frame.Globals}
	if member, ok := strings.CutPrefix(expression, "self."); ok {
		expression = member
		bags = [][]Variable{frame.Members}
	}
	for _, bag := range bags {
		for _, variable := range bag {
			if variable.Name == expression {
				return fmt.Sprint(encodeValue(variable.Value))
			}
		}
	}
	return fmt.Sprintf("Error: Identifier '%s' not declared in the current scope.", expression)
}

func (c *Console) set(args []string) {
	if len(args) == 0 {
		for _, key := range slices.Sorted(maps.Keys(c.options)) {
			c.printf("\t%s=%s", key, c.options[key])
		}
		return
	}
	key, value, ok := strings.Cut(args[0], "=")
	if !ok {
		c.printf("Error: Invalid set format. Use: set key=value")
		return
	}
	if _, known := c.options[key]; !known {
		c.printf("Error: Unknown option %s", key)
		return
	}
	c.options[key] = strings.ReplaceAll(value, `\t`, "\t")
}

func (c *Console) breakpoint(args []string, add bool) {
	if len(args) == 0 {
		if !add {
			c.probe.ClearBreakpoints()
			return
		}
		breakpoints := c.probe.Breakpoints()
		if len(breakpoints) == 0 {
			c.printf("No Breakpoints.")
			return
		}
		c.printf("Breakpoint(s): %d", len(breakpoints))
		for _, breakpoint := range breakpoints {
			c.printf("\t%s:%d", breakpoint.Source, breakpoint.Line)
		}
		return
	}
	source, line, ok := ParseBreakpoint(args[0])
	if !ok {
		c.printf("Error: Invalid breakpoint format. Expected [source:line]")
		return
	}
	c.probe.SetBreakpoint(source, line, add)
	if add {
		c.printf("Added breakpoint at %s:%d", source, line)
	} else {
		c.printf("Removed breakpoint at %s:%d", source, line)
	}
}

// ParseBreakpoint splits "source:line" at the last colon, so res://
// sources keep their scheme.
func ParseBreakpoint(text string) (string, int, bool) {
	colon := strings.LastIndex(text, ":")
	if colon < 0 {
		return "", 0, false
	}
	source := strings.TrimSpace(text[:colon])
	line, err := strconv.Atoi(strings.TrimSpace(text[colon+1:]))
	if err != nil || source == "" {
		return "", 0, false
	}
	if !strings.Contains(source, "://") {
		source = "res://" + source
	}
	return source, line, true
}

func (c *Console) help() {
	c.printf("Built-In Debugger command list:\n")
	for _, entry := range [][2]string{
		{"c,continue", "Continue execution."},
		{"bt,backtrace", "Show stack trace (frames)."},
		{"fr,frame <frame>", "Change current frame."},
		{"lv,locals", "Show local variables for current frame."},
		{"mv,members", "Show member variables for \"this\" in frame."},
		{"gv,globals", "Show global variables."},
		{"p,print <expr>", "Print a variable of the current frame."},
		{"s,step", "Step to next line."},
		{"n,next", "Next line."},
		{"fin,finish", "Step out of current frame."},
		{"br,break [source:line]", "List all breakpoints or place a breakpoint."},
		{"delete [source:line]", "Delete one/all breakpoints."},
		{"set [key=value]", "List all options, or set one."},
		{"q,quit", "Quit application."},
	} {
		c.printf("\t%-24s %s", entry[0], entry[1])
	}
}
