package stacks

import "errors"

// Rule diagnostics returned by RulesEngine.Explain. CheckLegal collapses all of
// them into a single boolean.
var (
	ErrMoveFormat  = errors.New("stacks: malformed move")
	ErrForcedMove  = errors.New("stacks: a stack taller than four must be reduced first")
	ErrNotOwner    = errors.New("stacks: start square is not topped by the mover")
	ErrUnreachable = errors.New("stacks: destination not reachable")
)

// Session-level rejections.
var (
	ErrGameFinished  = errors.New("stacks: game already finished")
	ErrNotYourTurn   = errors.New("stacks: not your turn")
	ErrUnknownPlayer = errors.New("stacks: player is not seated in this game")
)
