package conversation

import (
	"fmt"
	"strings"

	"github.com/varvaraparamon/final-eval-bot/internal/domain/model"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/pagination"
	"github.com/varvaraparamon/final-eval-bot/internal/domain/scoring"
)

// Participant-facing texts.
const (
	TextAskLogin        = "Enter your login:"
	TextAskPassword     = "Enter your password:"
	TextUnknownLogin    = "User not found. Send /start to try again."
	TextWrongPassword   = "Wrong password. Send /start to try again."
	TextVerifyFailed    = "Could not check your credentials right now. Enter your password again:"
	TextNotSignedIn     = "You are not signed in. Send /start to sign in."
	TextLoggedOut       = "You have logged out. Send /start to sign in again."
	TextChooseCase      = "Choose a case:"
	TextNoCases         = "There are no cases yet."
	TextChooseTeam      = "Choose a team:"
	TextNoTeams         = "There are no teams in this case."
	TextNavigation      = "Navigation:"
	TextConfirm         = "Check the scores:"
	TextSaved           = "Evaluation saved. What next?"
	TextSaveFailed      = "Could not save the evaluation. Try again:"
	TextCatalogFailed   = "Could not load the list right now. Try again later."
	TextStale           = "That button is no longer active."
	TextUnexpectedInput = "Please use the buttons below."

	ButtonSave     = "Save"
	ButtonEdit     = "Edit"
	ButtonNextTeam = "Next team"
	ButtonNewCase  = "Choose another case"
	ButtonLogout   = "Log out"
	ButtonPrev     = "⬅️ Back"
	ButtonNext     = "Next ➡️"
)

func welcome(login string) Prompt {
	return Prompt{
		Text: fmt.Sprintf(
			"Signed in as <b>%s</b>.\n\n"+
				"<b>%s</b> starts a new evaluation.\n"+
				"<b>%s</b> signs you out.",
			escapeHTML(login), MenuEvaluate, MenuSwitch),
		ParseMode: ParseModeHTML,
		Menu:      mainMenu(),
	}
}

func caseChooser(cases []model.Case) Prompt {
	rows := make([][]Button, 0, len(cases))
	for _, c := range cases {
		rows = append(rows, []Button{{Label: c.Title, Token: CaseToken(c.ID)}})
	}
	return Prompt{Text: TextChooseCase, Buttons: rows}
}

func teamButtons(page pagination.Page[model.Team]) [][]Button {
	rows := make([][]Button, 0, len(page.Items)+1)
	for _, t := range page.Items {
		rows = append(rows, []Button{{Label: t.Name, Token: TeamToken(t.ID)}})
	}
	var nav []Button
	if page.HasPrev {
		nav = append(nav, Button{Label: ButtonPrev, Token: PageToken(page.Index - 1)})
	}
	if page.HasNext {
		nav = append(nav, Button{Label: ButtonNext, Token: PageToken(page.Index + 1)})
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return rows
}

func scorePrompt(c scoring.Criterion) Prompt {
	row := make([]Button, 0, len(scoring.Values))
	for _, v := range scoring.Values {
		row = append(row, Button{Label: v.String(), Token: RateToken(c, v)})
	}
	return Prompt{Text: "Rate: " + c.Title(), Buttons: [][]Button{row}}
}

func confirmButtons() [][]Button {
	return [][]Button{
		{{Label: ButtonSave, Token: TokenSave}},
		{{Label: ButtonEdit, Token: TokenEdit}},
	}
}

func summary(card scoring.Card) Prompt {
	var b strings.Builder
	b.WriteString(TextConfirm)
	for _, c := range scoring.Criteria {
		fmt.Fprintf(&b, "\n%s: %s", c.Label(), card.Get(c))
	}
	return Prompt{Text: b.String(), Buttons: confirmButtons()}
}

func savedPrompt() Prompt {
	return Prompt{
		Text: TextSaved,
		Buttons: [][]Button{
			{{Label: ButtonNextTeam, Token: TokenNextTeam}},
			{{Label: ButtonNewCase, Token: TokenNewCase}},
			{{Label: ButtonLogout, Token: TokenLogout}},
		},
	}
}

func signedOut(s string) Prompt {
	return Prompt{Text: s, RemoveMenu: true}
}

var htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeHTML(s string) string { return htmlEscaper.Replace(s) }
