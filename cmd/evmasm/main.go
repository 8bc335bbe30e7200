// Copyright 2025 The go-ethereum Authors
// This file is part of the go-ethereum library.
//
// The go-ethereum library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The go-ethereum library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the go-ethereum library. If not, see <http://www.gnu.org/licenses/>.

// evmasm assembles mnemonic EVM programs into linked bytecode, applying the
// managed-environment instruction rewrites and the low-level optimizer.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/holiman/uint256"
	"github.com/urfave/cli/v2"

	"github.com/ethereum/go-evmasm/asm"
	"github.com/ethereum/go-evmasm/codegen"
	"github.com/ethereum/go-evmasm/vm"
)

var (
	optimizeFlag = &cli.BoolFlag{
		Name:  "optimize",
		Usage: "run jumpdest removal and peephole optimization",
		Value: true,
	}
	rewriteFlag = &cli.BoolFlag{
		Name:  "rewrite",
		Usage: "rewrite unsafe opcodes into execution manager calls",
		Value: true,
	}
	jsonFlag = &cli.BoolFlag{
		Name:  "json",
		Usage: "print the assembly debug representation instead of bytecode",
	}
	textFlag = &cli.BoolFlag{
		Name:  "asm",
		Usage: "print the assembly listing instead of bytecode",
	}
)

func main() {
	app := &cli.App{
		Name:      "evmasm",
		Usage:     "assemble mnemonic EVM programs",
		ArgsUsage: "[file]",
		Flags:     []cli.Flag{optimizeFlag, rewriteFlag, jsonFlag, textFlag},
		Action:    run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run(cliCtx *cli.Context) error {
	name := "stdin"
	var src []byte
	var err error
	if cliCtx.Args().Len() > 0 {
		name = cliCtx.Args().First()
		src, err = os.ReadFile(name)
	} else {
		src, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return err
	}

	reporter := codegen.NewErrorReporter()
	ctx := codegen.New(name, reporter)
	ctx.SetRewritingEnabled(cliCtx.Bool(rewriteFlag.Name))
	ctx.SetBuildingUserAssembly(true)

	if err := parseProgram(ctx, name, string(src)); err != nil {
		return err
	}
	ctx.AppendMissingLowLevelFunctions()
	if cliCtx.Bool(optimizeFlag.Name) {
		ctx.Assembly().Optimize(asm.OptimizerSettings{
			RunJumpdestRemover: true,
			RunPeephole:        true,
		})
	}

	printDiagnostics(reporter.Diagnostics())
	if reporter.HasErrors() {
		return fmt.Errorf("assembly of %s failed", name)
	}

	switch {
	case cliCtx.Bool(textFlag.Name):
		fmt.Print(ctx.Assembly().Text())
	case cliCtx.Bool(jsonFlag.Name):
		out, err := ctx.Assembly().JSON()
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	default:
		obj, err := ctx.AssembledObject()
		if err != nil {
			return err
		}
		fmt.Println("0x" + obj.Hex())
	}
	return nil
}

// parseProgram feeds a mnemonic listing into the context line by line.
// Supported forms: "name:" label definitions, "PUSH <value>", "JUMP <label>"
// and "JUMPI <label>" with symbolic targets, and bare opcode names.
func parseProgram(ctx *codegen.Context, name, src string) (err error) {
	defer asm.RecoverError(&err)
	a := ctx.Assembly()
	for num, line := range strings.Split(src, "\n") {
		if i := strings.IndexAny(line, ";#"); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		a.SetSourceLocation(asm.SourceLocation{Source: name, Start: num + 1, End: num + 1})

		mnemonic := strings.ToUpper(fields[0])
		switch {
		case strings.HasSuffix(fields[0], ":"):
			a.Append(a.NamedTag(strings.TrimSuffix(fields[0], ":")))

		case mnemonic == "PUSH":
			if len(fields) != 2 {
				return fmt.Errorf("%s:%d: PUSH needs exactly one value", name, num+1)
			}
			v, err := parseValue(fields[1])
			if err != nil {
				return fmt.Errorf("%s:%d: %v", name, num+1, err)
			}
			a.AppendPush(v)

		case mnemonic == "JUMP" && len(fields) == 2:
			a.AppendJumpTo(a.NamedTag(fields[1]), asm.JumpOrdinary)

		case mnemonic == "JUMPI" && len(fields) == 2:
			a.AppendConditionalJumpTo(a.NamedTag(fields[1]))

		default:
			op, ok := vm.StringToOp(mnemonic)
			if !ok {
				return fmt.Errorf("%s:%d: unknown instruction %q", name, num+1, fields[0])
			}
			if len(fields) != 1 {
				return fmt.Errorf("%s:%d: %s takes no operand", name, num+1, mnemonic)
			}
			a.AppendOp(op)
		}
	}
	return nil
}

func parseValue(s string) (*uint256.Int, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return uint256.FromHex("0x" + strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X"))
	}
	v := new(uint256.Int)
	if err := v.SetFromDecimal(s); err != nil {
		return nil, fmt.Errorf("invalid value %q: %v", s, err)
	}
	return v, nil
}

func printDiagnostics(diags []codegen.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	warn := color.New(color.FgYellow, color.Bold)
	fail := color.New(color.FgRed, color.Bold)
	for _, d := range diags {
		c := warn
		if d.Severity == codegen.SeverityError {
			c = fail
		}
		c.Fprintf(os.Stderr, "%s: ", d.Severity)
		fmt.Fprintln(os.Stderr, d.Message)
	}
}
