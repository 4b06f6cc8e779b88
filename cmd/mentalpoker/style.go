package main

import (
	"strings"

	"github.com/pterm/pterm"

	"github.com/luca-patrignani/mental-poker-channel/domain/poker"
)

func getActionPanel(v *tableView) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	actionString := "No action yet"
	if v.lastAction != nil {
		actionString = pterm.Sprintfln("%s: %s", v.lastPlayer, v.lastAction)
	}
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightYellow("|LAST ACTION|")).WithTitleTopCenter().Sprint(actionString)}
}

func getWinnerPanel(v *tableView) pterm.Panel {
	pbox := pterm.DefaultBox.WithHorizontalPadding(4).WithTopPadding(1).WithBottomPadding(1)
	r := v.settled
	if r == nil {
		r = v.result
	}
	if r == nil {
		return pterm.Panel{Data: pbox.WithTitle(pterm.LightRed("|ABORTED|")).WithTitleTopCenter().Sprint("The hand was not settled")}
	}
	infoString := ""
	if v.challenge != "" {
		infoString += pterm.LightRed(v.challenge) + "\n"
	}
	for _, p := range []poker.PlayerID{poker.Alice, poker.Bob} {
		infoString += winnerInfo(v, *r, p)
	}
	return pterm.Panel{Data: pbox.WithTitle(pterm.LightGreen("|SHOWDOWN|")).WithTitleTopCenter().Sprint(infoString)}
}

func winnerInfo(v *tableView, r poker.Result, p poker.PlayerID) string {
	name := pterm.LightCyan(p.String())
	before, after := v.funds[p], r.FundsShare[p]
	switch {
	case after > before:
		if hand, ok := v.describe(p); ok {
			return pterm.Sprintfln("%s won %d with %s", name, after-before, hand)
		}
		return pterm.Sprintfln("%s won %d taking down the pot", name, after-before)
	case after < before:
		return pterm.Sprintfln("%s lost %d", name, before-after)
	}
	return pterm.Sprintfln("%s keeps %d", name, after)
}

func printState(v *tableView, additionalPanel ...pterm.Panel) {
	opponent := pterm.Panel{Data: printPlayerInfo(v, v.me.Other(), false)}
	mainPlayer := pterm.Panel{Data: printPlayerInfo(v, v.me, true)}
	board := pterm.Panel{Data: printBoardInfo(v)}
	dashboard := []pterm.Panel{mainPlayer}
	dashboard = append(dashboard, additionalPanel...)

	_ = pterm.DefaultPanel.WithPanels([][]pterm.Panel{
		{opponent},
		{board},
		dashboard,
	}).Render()
}

func printPlayerInfo(v *tableView, p poker.PlayerID, main bool) string {
	hpadding := 4
	if main {
		hpadding = 10
	}
	pbox := pterm.DefaultBox.WithHorizontalPadding(hpadding).WithTopPadding(1).WithBottomPadding(1)
	var active string
	if v.folded[p] {
		active = pterm.LightRed("Folded")
	} else {
		active = pterm.LightGreen("Active")
	}
	hand := pterm.BgGreen.Sprint(strings.Join(v.hole(p), " - "))
	return pbox.WithTitle(p.String()).WithTitleTopLeft().Sprintf("%s\nCurrent Bet: %d\nBankroll: %d\n%s\n", active, v.bet(p), v.funds[p], hand)
}

func printBoardInfo(v *tableView) string {
	board := strings.Join(v.board(), " - ")
	if board == "" {
		board = "no cards"
	}
	return pterm.BgGreen.Sprintf("\n %s | Pool: %d | %s \n", board, v.bets.Pool(), v.phase)
}
