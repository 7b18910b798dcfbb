package server

import "time"

const (
	ProtocolVersion = 1

	paddleTickRate   = 30 // ticks per second
	paddleRoundLimit = 120 * time.Second
	paddleWinScore   = 3

	tableHalfWidth = 9.6 // x bound, paddles sit at ±x
	tableHalfDepth = 5.6 // z bound, walls reflect
	paddleHitX     = 1.5
	paddleHitZ     = 2.0
	serveSpeedX    = 6.0
	serveMaxZ      = 2.0
	deflectFactor  = 2.0
	speedUpFactor  = 1.05

	reactionTickInterval = time.Second
	reactionCountdown    = 20

	duelCapacity       = 2
	tournamentCapacity = 4
	tournamentRounds   = 3

	maxNameLength = 20
	roomCodeLen   = 6
)
