package expr

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

type builtin struct {
	minArgs int
	maxArgs int // -1 for variadic
	fn      func(env Env, args []Value, pos int) (Value, error)
}

func (b builtin) call(env Env, args []Value, pos int) (Value, error) {
	if len(args) < b.minArgs || (b.maxArgs >= 0 && len(args) > b.maxArgs) {
		return Value{}, newError(ErrArity, pos, "wrong number of arguments: got %d", len(args))
	}
	return b.fn(env, args, pos)
}

// functions is the closed whitelist. Keys are upper-case.
var functions map[string]builtin

func init() {
	functions = map[string]builtin{
		"ABS":   numeric1(math.Abs),
		"INT":   numeric1(math.Trunc),
		"FLOAT": {1, 1, builtinFloat},
		"ROUND": {1, 2, builtinRound},
		"MAX":   {1, -1, extreme(func(a, b float64) bool { return a > b })},
		"MIN":   {1, -1, extreme(func(a, b float64) bool { return a < b })},
		"SGN":   numeric1(sign),
		"SIN":   numeric1(math.Sin),
		"COS":   numeric1(math.Cos),
		"TAN":   numeric1(math.Tan),
		"ATN":   numeric1(math.Atan),
		"LOG":   {1, 1, builtinLog},
		"EXP":   numeric1(math.Exp),
		"SQR":   {1, 1, builtinSqr},
		"RND": {0, 1, func(env Env, _ []Value, _ int) (Value, error) {
			return Num(env.Random()), nil
		}},
		"TIMER": {0, 0, func(env Env, _ []Value, _ int) (Value, error) {
			return Num(env.Elapsed().Seconds()), nil
		}},
		"LEN":     {1, 1, builtinLen},
		"STR":     {1, 1, builtinStr},
		"STR$":    {1, 1, builtinStr},
		"VAL":     {1, 1, builtinVal},
		"UPPER":   {1, 1, textMap(strings.ToUpper)},
		"LOWER":   {1, 1, textMap(strings.ToLower)},
		"MID":     {3, 3, builtinMid},
		"MID$":    {2, 3, builtinMid},
		"LEFT$":   {2, 2, builtinLeft},
		"RIGHT$":  {2, 2, builtinRight},
		"INSTR":   {2, 2, builtinInstr},
		"CHR$":    {1, 1, builtinChr},
		"ASC":     {1, 1, builtinAsc},
		"SPACE$":  {1, 1, builtinSpace},
		"STRING$": {2, 2, builtinString},
	}
}

// IsFunction reports whether name is a whitelisted function.
func IsFunction(name string) bool {
	_, ok := functions[strings.ToUpper(name)]
	return ok
}

func numberArg(args []Value, i, pos int) (float64, error) {
	f, ok := args[i].Number()
	if !ok {
		return 0, newError(ErrTypeMismatch, pos, "argument %d must be a number, got %s", i+1, args[i].Kind())
	}
	return f, nil
}

func textArg(args []Value, i, pos int) (string, error) {
	s, ok := args[i].Text()
	if !ok {
		return "", newError(ErrTypeMismatch, pos, "argument %d must be a string, got %s", i+1, args[i].Kind())
	}
	return s, nil
}

func numeric1(f func(float64) float64) builtin {
	return builtin{1, 1, func(_ Env, args []Value, pos int) (Value, error) {
		x, err := numberArg(args, 0, pos)
		if err != nil {
			return Value{}, err
		}
		r := f(x)
		if math.IsNaN(r) && !math.IsNaN(x) {
			return Value{}, newError(ErrDomain, pos, "math domain error")
		}
		return Num(r), nil
	}}
}

func sign(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

func builtinFloat(_ Env, args []Value, pos int) (Value, error) {
	f, ok := args[0].AsNumber()
	if !ok {
		return Value{}, newError(ErrTypeMismatch, pos, "could not convert %q to float", args[0].String())
	}
	return Num(f), nil
}

func builtinRound(_ Env, args []Value, pos int) (Value, error) {
	x, err := numberArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	if len(args) == 1 {
		return Num(math.RoundToEven(x)), nil
	}
	n, err := numberArg(args, 1, pos)
	if err != nil {
		return Value{}, err
	}
	scale := math.Pow(10, math.Trunc(n))
	return Num(math.RoundToEven(x*scale) / scale), nil
}

func extreme(better func(a, b float64) bool) func(Env, []Value, int) (Value, error) {
	return func(_ Env, args []Value, pos int) (Value, error) {
		best, err := numberArg(args, 0, pos)
		if err != nil {
			return Value{}, err
		}
		for i := 1; i < len(args); i++ {
			x, err := numberArg(args, i, pos)
			if err != nil {
				return Value{}, err
			}
			if better(x, best) {
				best = x
			}
		}
		return Num(best), nil
	}
}

func builtinLog(_ Env, args []Value, pos int) (Value, error) {
	x, err := numberArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	if x <= 0 {
		return Value{}, newError(ErrDomain, pos, "math domain error")
	}
	return Num(math.Log(x)), nil
}

func builtinSqr(_ Env, args []Value, pos int) (Value, error) {
	x, err := numberArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	if x < 0 {
		return Value{}, newError(ErrDomain, pos, "math domain error")
	}
	return Num(math.Sqrt(x)), nil
}

func builtinLen(_ Env, args []Value, _ int) (Value, error) {
	return Num(float64(utf8.RuneCountInString(args[0].String()))), nil
}

func builtinStr(_ Env, args []Value, _ int) (Value, error) {
	return Str(args[0].String()), nil
}

// builtinVal parses the longest numeric prefix of its argument; no prefix is 0.
func builtinVal(_ Env, args []Value, _ int) (Value, error) {
	if f, ok := args[0].Number(); ok {
		return Num(f), nil
	}
	s := strings.TrimSpace(args[0].str)
	for end := len(s); end > 0; end-- {
		if f, err := strconv.ParseFloat(s[:end], 64); err == nil && !isNamedFloat(s[:end]) && !strings.ContainsAny(s[:end], "xXpP_") {
			return Num(f), nil
		}
	}
	return Num(0), nil
}

func textMap(f func(string) string) func(Env, []Value, int) (Value, error) {
	return func(_ Env, args []Value, pos int) (Value, error) {
		s, err := textArg(args, 0, pos)
		if err != nil {
			return Value{}, err
		}
		return Str(f(s)), nil
	}
}

// substring returns up to n runes of s starting at the 1-based rune start.
func substring(s string, start, n int) string {
	r := []rune(s)
	if start < 1 {
		start = 1
	}
	if start > len(r) || n <= 0 {
		return ""
	}
	end := start - 1 + n
	if end > len(r) {
		end = len(r)
	}
	return string(r[start-1 : end])
}

func builtinMid(_ Env, args []Value, pos int) (Value, error) {
	s, err := textArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	start, err := numberArg(args, 1, pos)
	if err != nil {
		return Value{}, err
	}
	n := float64(utf8.RuneCountInString(s))
	if len(args) == 3 {
		if n, err = numberArg(args, 2, pos); err != nil {
			return Value{}, err
		}
	}
	return Str(substring(s, int(start), int(n))), nil
}

func builtinLeft(_ Env, args []Value, pos int) (Value, error) {
	s, err := textArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	n, err := numberArg(args, 1, pos)
	if err != nil {
		return Value{}, err
	}
	return Str(substring(s, 1, int(n))), nil
}

func builtinRight(_ Env, args []Value, pos int) (Value, error) {
	s, err := textArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	n, err := numberArg(args, 1, pos)
	if err != nil {
		return Value{}, err
	}
	count := utf8.RuneCountInString(s)
	k := int(n)
	if k > count {
		k = count
	}
	return Str(substring(s, count-k+1, k)), nil
}

func builtinInstr(_ Env, args []Value, pos int) (Value, error) {
	s, err := textArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	sub, err := textArg(args, 1, pos)
	if err != nil {
		return Value{}, err
	}
	i := strings.Index(s, sub)
	if i < 0 {
		return Num(0), nil
	}
	return Num(float64(utf8.RuneCountInString(s[:i]) + 1)), nil
}

func builtinChr(_ Env, args []Value, pos int) (Value, error) {
	n, err := numberArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	if n < 0 || n > unicode.MaxRune {
		return Value{}, newError(ErrDomain, pos, "character code %s out of range", FormatNumber(n))
	}
	return Str(string(rune(n))), nil
}

func builtinAsc(_ Env, args []Value, pos int) (Value, error) {
	s, err := textArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	if s == "" {
		return Value{}, newError(ErrDomain, pos, "ASC of empty string")
	}
	r, _ := utf8.DecodeRuneInString(s)
	return Num(float64(r)), nil
}

func builtinSpace(_ Env, args []Value, pos int) (Value, error) {
	n, err := numberArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	return repeat(" ", n, pos)
}

func builtinString(_ Env, args []Value, pos int) (Value, error) {
	n, err := numberArg(args, 0, pos)
	if err != nil {
		return Value{}, err
	}
	var ch string
	if code, ok := args[1].Number(); ok {
		if code < 0 || code > unicode.MaxRune {
			return Value{}, newError(ErrDomain, pos, "character code %s out of range", FormatNumber(code))
		}
		ch = string(rune(code))
	} else {
		r, _ := utf8.DecodeRuneInString(args[1].str)
		if args[1].str == "" {
			return Str(""), nil
		}
		ch = string(r)
	}
	return repeat(ch, n, pos)
}
