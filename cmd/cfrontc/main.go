// Command cfrontc drives the cc package's parser over a pre-tokenized
// JSON token stream, printing each external declaration's lowered CFG.
// It exists only to exercise the core end-to-end (spec.md §6: "No CLI,
// files, environment, or wire protocol live in the core").
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/buger/jsonparser"

	"github.com/clarete/cc"
)

// tokenNames maps the JSON token-stream's symbolic names (spec.md §6)
// onto TokenKind. Single-character punctuators are looked up by their
// literal rune instead of appearing here.
var tokenNames = map[string]cc.TokenKind{
	"IDENTIFIER":         cc.TokIdentifier,
	"INTEGER_CONSTANT":   cc.TokIntegerConstant,
	"STRING":             cc.TokString,
	"CONST":              cc.TokConst,
	"VOLATILE":           cc.TokVolatile,
	"AUTO":               cc.TokAuto,
	"REGISTER":           cc.TokRegister,
	"STATIC":             cc.TokStatic,
	"EXTERN":             cc.TokExtern,
	"TYPEDEF":            cc.TokTypedef,
	"CHAR":               cc.TokChar,
	"SHORT":              cc.TokShort,
	"INT":                cc.TokInt,
	"LONG":               cc.TokLong,
	"SIGNED":             cc.TokSigned,
	"UNSIGNED":           cc.TokUnsigned,
	"FLOAT":              cc.TokFloat,
	"DOUBLE":             cc.TokDouble,
	"VOID":               cc.TokVoid,
	"STRUCT":             cc.TokStruct,
	"UNION":              cc.TokUnion,
	"ENUM":               cc.TokEnum,
	"IF":                 cc.TokIf,
	"ELSE":               cc.TokElse,
	"SWITCH":             cc.TokSwitch,
	"WHILE":              cc.TokWhile,
	"DO":                 cc.TokDo,
	"FOR":                cc.TokFor,
	"GOTO":               cc.TokGoto,
	"CONTINUE":           cc.TokContinue,
	"BREAK":              cc.TokBreak,
	"RETURN":             cc.TokReturn,
	"CASE":               cc.TokCase,
	"DEFAULT":            cc.TokDefault,
	"SIZEOF":             cc.TokSizeof,
	"EQ":                 cc.TokEq,
	"NEQ":                cc.TokNeq,
	"LEQ":                cc.TokLeq,
	"GEQ":                cc.TokGeq,
	"LOGICAL_AND":        cc.TokLogicalAnd,
	"LOGICAL_OR":         cc.TokLogicalOr,
	"INCREMENT":          cc.TokIncrement,
	"DECREMENT":          cc.TokDecrement,
	"ARROW":              cc.TokArrow,
	"DOTS":               cc.TokDots,
	"$":                  cc.TokEOF,
}

// decodeToken resolves one JSON token record of the form
// {"token":"INT"} or {"token":"+"} (single punctuator) plus optional
// "strval"/"intval" payload fields into a cc.Token.
func decodeToken(value []byte) (cc.Token, error) {
	name, err := jsonparser.GetString(value, "token")
	if err != nil {
		return cc.Token{}, fmt.Errorf("token record missing \"token\" field: %w", err)
	}

	kind, ok := tokenNames[name]
	if !ok {
		runes := []rune(name)
		if len(runes) != 1 {
			return cc.Token{}, fmt.Errorf("unrecognized token tag %q", name)
		}
		kind = cc.TokenKind(runes[0])
	}

	tok := cc.Token{Kind: kind}
	if sv, err := jsonparser.GetString(value, "strval"); err == nil {
		tok.StrVal = sv
	}
	if iv, err := jsonparser.GetInt(value, "intval"); err == nil {
		tok.IntVal = iv
	}
	return tok, nil
}

// decodeTokenStream streams a JSON array of token records via
// jsonparser.ArrayEach, the teacher's own pick (benchmarks/
// benchmarks_test.go) for decoding flat, repetitive JSON without
// building an intermediate map[string]any per element.
func decodeTokenStream(data []byte) ([]cc.Token, error) {
	var toks []cc.Token
	var decodeErr error
	_, err := jsonparser.ArrayEach(data, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if decodeErr != nil || err != nil {
			if err != nil {
				decodeErr = err
			}
			return
		}
		tok, terr := decodeToken(value)
		if terr != nil {
			decodeErr = terr
			return
		}
		toks = append(toks, tok)
	})
	if err != nil {
		return nil, err
	}
	return toks, decodeErr
}

func main() {
	var (
		tokensPath = flag.String("tokens", "", "Path to a JSON token-stream file")
		outputPath = flag.String("output", "/dev/stdout", "Path to the output file")
	)
	flag.Parse()

	if *tokensPath == "" {
		log.Fatal("Token stream not informed")
	}

	data, err := os.ReadFile(*tokensPath)
	if err != nil {
		log.Fatalf("Can't read token stream file: %s", err.Error())
	}

	toks, err := decodeTokenStream(data)
	if err != nil {
		log.Fatalf("Can't decode token stream: %s", err.Error())
	}

	out, err := os.Create(*outputPath)
	if err != nil {
		log.Fatalf("Can't open output file: %s", err.Error())
	}
	defer out.Close()

	compiler := cc.NewCompiler(cc.NewStaticLexer(toks))
	ctx := compiler.Context()

	for {
		d, err := compiler.Parse()
		if err != nil {
			log.Fatalf("Parse error: %s", err.Error())
		}
		if d == nil {
			break
		}
		fmt.Fprint(out, cc.PrintDecl(ctx, d))
	}

	for _, w := range compiler.Warnings {
		fmt.Fprintln(os.Stderr, "warning:", w)
	}
}
