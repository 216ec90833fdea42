package service

import "errors"

// Именованные ошибки переходов мультиплеерной комнаты.
// Каждая проверка выполняется ДО любой записи: отказ никогда
// не оставляет частично измененного состояния.
var (
	// ErrAlreadyJoined - игрок уже является участником этой комнаты.
	ErrAlreadyJoined = errors.New("player already in this game")
	// ErrRoomFull - достигнут лимит maxPlayers.
	ErrRoomFull = errors.New("game is full")
	// ErrNotJoinable - комната не в состоянии lobby/ready.
	ErrNotJoinable = errors.New("cannot join this game in its current state")
	// ErrNotInRoom - игрок не является участником комнаты.
	ErrNotInRoom = errors.New("player not in this game")
	// ErrInvalidChallenge - пустые или совпадающие страницы кастомного челленджа.
	ErrInvalidChallenge = errors.New("invalid challenge pages")
	// ErrNoChallengeSelected - челлендж еще не выбран.
	ErrNoChallengeSelected = errors.New("challenge not selected")
	// ErrNotAllReady - не все участники готовы.
	ErrNotAllReady = errors.New("not all players are ready")
	// ErrNotInProgress - комната не в состоянии in_progress.
	ErrNotInProgress = errors.New("game is not in progress")
	// ErrNotCreator - действие доступно только создателю комнаты.
	ErrNotCreator = errors.New("only the game creator can perform this action")
	// ErrAlreadyFinished - участник уже финишировал.
	ErrAlreadyFinished = errors.New("participant has already finished")
)

// ErrWikipediaUnavailable возвращается при любой ошибке обращения к Wikipedia API.
// Детали upstream-ошибки остаются в логах и не доходят до клиента.
var ErrWikipediaUnavailable = errors.New("wikipedia is unavailable")
