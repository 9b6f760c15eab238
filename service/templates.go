package service

import (
	"sort"

	"awards-voting-backend/models"

	"github.com/samber/lo"
)

type templateQuestion struct {
	title      string
	answerType models.AnswerType
}

type templateCategory struct {
	name        string
	description string
	questions   []templateQuestion
}

func memberAward(title string) templateQuestion {
	return templateQuestion{title: title, answerType: models.AnswerMember}
}

func award(title string, t models.AnswerType) templateQuestion {
	return templateQuestion{title: title, answerType: t}
}

// ballotTemplates is the built-in catalog for SeedTemplate, keyed by id.
var ballotTemplates = map[string][]templateCategory{
	"2023": {
		{
			name:        "General Awards",
			description: "Overall MECA season awards",
			questions: []templateQuestion{
				memberAward("MECAhead of the Year"),
				memberAward("Competitor of the Year"),
				award("Retail Member of the Year", models.AnswerRetailer),
				award("Manufacturer of the Year", models.AnswerManufacturer),
				award("Event Director of the Year", models.AnswerEventDirector),
				award("Venue of the Year", models.AnswerVenue),
				award("Team of the Year", models.AnswerTeam),
				award("Judge Team of the Year", models.AnswerText),
				memberAward("High School Student of the Year"),
				memberAward("12 Volt Industry Award"),
				memberAward("Distinguished Service Award"),
				memberAward("Pioneer Award"),
				memberAward("Alma Gates Lifetime Achievement Award"),
				memberAward("TCB (Taking Care of Business Award)"),
				memberAward("Johnny Appleseed Award"),
				memberAward("Best Penmanship"),
			},
		},
		{
			name:        "SPL Awards",
			description: "Sound Pressure Level competition awards",
			questions: []templateQuestion{
				award("SPL Judge of the Year", models.AnswerJudge),
				memberAward("SPL Spirit Award"),
				memberAward("SPL Rookie of the Year"),
				memberAward("SPL Survivor Award"),
				award("SPL Loud Spouses", models.AnswerText),
				memberAward("SPL Hatfield & McCoy Award #1"),
				memberAward("SPL Hatfield & McCoy Award #2"),
				memberAward("Stinking Loud Award"),
				memberAward("Motormouth Award"),
				memberAward("Neighborhood Nuisance Award"),
				memberAward("Park & Pound Spirit Award"),
			},
		},
		{
			name:        "SQL Awards",
			description: "Sound Quality League competition awards",
			questions: []templateQuestion{
				award("SQL Judge of the Year", models.AnswerJudge),
				memberAward(`"The Silverman" SQL Spirit Award`),
				memberAward("Mike Bayler SQL Sportsmanship Award"),
				memberAward("SQL Rookie of the Year"),
				memberAward("SQL Survivor Award"),
				award("SQL Spouses", models.AnswerText),
				memberAward("SQL Hatfield & McCoy Award #1"),
				memberAward("SQL Hatfield & McCoy Award #2"),
				memberAward("SQL Dueling Demos Hatfield & McCoy Award #1"),
				memberAward("SQL Dueling Demos Hatfield & McCoy Award #2"),
			},
		},
		{
			name:        "Format Spirit Awards",
			description: "Spirit awards for MECA competition formats",
			questions: []templateQuestion{
				memberAward("MECA Spirit Award"),
				memberAward("Dueling Demos Spirit Award"),
				memberAward("Show & Shine Spirit Award"),
			},
		},
	},
}

// TemplateIDs lists the ids SeedTemplate accepts
func TemplateIDs() []string {
	ids := lo.Keys(ballotTemplates)
	sort.Strings(ids)
	return ids
}
