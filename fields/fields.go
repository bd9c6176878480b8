// Package fields holds the column order of the responses spreadsheet.
//
// The order is part of the contract with the spreadsheet: column B holds
// Labels[0], column C holds Labels[1] and so on. Changing it means bumping
// Version and migrating the sheet headers.
package fields

import (
	"io"

	"github.com/goccy/go-json"
)

type Order struct {
	Version string
	Labels  []string
}

var Current = Order{
	Version: "2025-1",
	Labels: []string{
		"Будущее после войны",
		"Высказывания о Западе и союзниках",
		"Истории о военных и погибших",
		"Вопросы экономики",
		"Динамика разговоров о войне 2022-2025",
		"Сколько людей в окружении поддерживают войну",
		"Война, как обыденность",
		"Война и церковь",
		"Отношение к антивоенным оппозиционерам",
		"Мужчины или женщины?",
		"Возраст собеседников",
		"Источники о войне и событиях в России",
		"География",
		"Возраст респондента",
		"Частота разговоров о политике и войне",
		"Избегаю обсуждение войны с ближним кругом",
		"Как проходят регулярные вопросы о войне с ближним кругом",
		"Причины избегания обсуждений войны с широким кругом",
		"Как проходят регулярные обсуждения войны с широким кругом",
		"Причины избегания разговоров о войне с незнакомцами",
		"Как проходят регулярные разговоры о войне с незнакомцами",
	},
}

// Reconcile compares the order with the question names of a survey
// definition. missing are ordered labels the survey no longer asks;
// unmapped are survey questions that will never reach the sheet.
func (o Order) Reconcile(schema []string) (missing, unmapped []string) {
	inSchema := make(map[string]bool, len(schema))
	for _, name := range schema {
		inSchema[name] = true
	}
	inOrder := make(map[string]bool, len(o.Labels))
	for _, label := range o.Labels {
		inOrder[label] = true
		if !inSchema[label] {
			missing = append(missing, label)
		}
	}
	for _, name := range schema {
		if !inOrder[name] {
			unmapped = append(unmapped, name)
		}
	}
	return
}

type element struct {
	Type     string    `json:"type"`
	Name     string    `json:"name"`
	Elements []element `json:"elements"`
}

type definition struct {
	Pages    []element `json:"pages"`
	Elements []element `json:"elements"`
}

// SchemaLabels lists the question names of a survey definition, in
// document order. Panels contribute their nested questions, not themselves.
func SchemaLabels(r io.Reader) ([]string, error) {
	def := definition{}
	err := json.NewDecoder(r).Decode(&def)
	if err != nil {
		return nil, err
	}

	var labels []string
	var walk func([]element)
	walk = func(elements []element) {
		for _, e := range elements {
			if e.Type == "panel" || len(e.Elements) > 0 {
				walk(e.Elements)
				continue
			}
			if e.Type == "html" || e.Name == "" {
				continue
			}
			labels = append(labels, e.Name)
		}
	}
	walk(def.Elements)
	for _, page := range def.Pages {
		walk(page.Elements)
	}
	return labels, nil
}
