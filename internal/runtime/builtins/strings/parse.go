package strings

import (
	"strconv"

	"github.com/therealbnut/rune/internal/runtime/builtins"
	"github.com/therealbnut/rune/internal/value"
)

// parseInt returns Ok(int) or Err(message).
func parseInt(env builtins.Env, args []value.Value) (value.Value, error) {
	s, err := str("parse_int", args, 0)
	if err != nil {
		return value.Value{}, err
	}

	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return value.Err(value.String("invalid integer " + strconv.Quote(s))), nil
	}
	return value.Ok(value.Integer(n)), nil
}
