package service

import (
	"context"
	"sort"
	"strings"

	"awards-voting-backend/models"
	"awards-voting-backend/repository"
)

const maxTextAnswerLength = 500

// answerRule holds what differs between answer kinds: how an answer is
// read and checked, where it is stored and how it is tallied.
type answerRule struct {
	// value returns the trimmed answer value, or "" when it is missing
	value func(a models.BallotAnswer) string
	store func(r *models.VotingResponse, value string)
	tally func(ctx context.Context, repo repository.VotingRepository, q models.VotingQuestion, out *models.QuestionResult) error
	// requirement names what the voter must provide, for error messages
	requirement string
}

var answerRules = map[models.AnswerKind]answerRule{
	models.KindProfile: {
		value:       func(a models.BallotAnswer) string { return trimmed(a.SelectedMemberID) },
		store:       func(r *models.VotingResponse, v string) { r.SelectedMemberID = &v },
		tally:       tallyProfiles,
		requirement: "a selected member",
	},
	models.KindTeam: {
		value:       func(a models.BallotAnswer) string { return trimmed(a.SelectedTeamID) },
		store:       func(r *models.VotingResponse, v string) { r.SelectedTeamID = &v },
		tally:       tallyTeams,
		requirement: "a selected team",
	},
	models.KindTextEntity: {
		value:       func(a models.BallotAnswer) string { return trimmed(a.TextAnswer) },
		store:       func(r *models.VotingResponse, v string) { r.TextAnswer = &v },
		tally:       tallyEntities,
		requirement: "a selection",
	},
	models.KindText: {
		value:       func(a models.BallotAnswer) string { return trimmed(a.TextAnswer) },
		store:       func(r *models.VotingResponse, v string) { r.TextAnswer = &v },
		tally:       listTextAnswers,
		requirement: "a text answer",
	},
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// checkAnswer validates a single answer against its question and returns
// the value to store.
func checkAnswer(q models.VotingQuestion, a models.BallotAnswer) (string, error) {
	rule, ok := answerRules[q.AnswerType.Kind()]
	if !ok {
		return "", invalid("question %q has unsupported answer type %q", q.Title, q.AnswerType)
	}
	v := rule.value(a)
	if v == "" {
		return "", invalid("question %q requires %s", q.Title, rule.requirement)
	}
	if len([]rune(v)) > maxTextAnswerLength {
		return "", invalid("answer to %q exceeds %d characters", q.Title, maxTextAnswerLength)
	}
	return v, nil
}

func tallyProfiles(ctx context.Context, repo repository.VotingRepository, q models.VotingQuestion, out *models.QuestionResult) error {
	rows, err := repo.TallyMembers(ctx, q.ID)
	if err != nil {
		return err
	}
	out.MemberVotes = make([]models.MemberVote, 0, len(rows))
	for _, row := range rows {
		out.MemberVotes = append(out.MemberVotes, models.MemberVote{
			MemberID:        row.MemberID,
			MemberName:      models.FullName(row.FirstName, row.LastName),
			MemberMecaID:    row.MecaID,
			MemberAvatarURL: row.AvatarURL,
			VoteCount:       row.VoteCount,
		})
		out.TotalResponses += row.VoteCount
	}
	return nil
}

func tallyTeams(ctx context.Context, repo repository.VotingRepository, q models.VotingQuestion, out *models.QuestionResult) error {
	rows, err := repo.TallyTeams(ctx, q.ID)
	if err != nil {
		return err
	}
	out.TeamVotes = make([]models.TeamVote, 0, len(rows))
	for _, row := range rows {
		out.TeamVotes = append(out.TeamVotes, models.TeamVote{
			TeamID:      row.TeamID,
			TeamName:    row.TeamName,
			TeamLogoURL: row.LogoURL,
			VoteCount:   row.VoteCount,
		})
		out.TotalResponses += row.VoteCount
	}
	return nil
}

// tallyEntities groups text-entity answers by their exact stored string.
func tallyEntities(ctx context.Context, repo repository.VotingRepository, q models.VotingQuestion, out *models.QuestionResult) error {
	answers, err := repo.ListTextAnswers(ctx, q.ID)
	if err != nil {
		return err
	}
	counts := make(map[string]int64, len(answers))
	for _, a := range answers {
		counts[a]++
	}
	out.EntityVotes = make([]models.EntityVote, 0, len(counts))
	for name, n := range counts {
		out.EntityVotes = append(out.EntityVotes, models.EntityVote{Name: name, VoteCount: n})
	}
	sort.Slice(out.EntityVotes, func(i, j int) bool {
		a, b := out.EntityVotes[i], out.EntityVotes[j]
		if a.VoteCount != b.VoteCount {
			return a.VoteCount > b.VoteCount
		}
		return a.Name < b.Name
	})
	out.TotalResponses = int64(len(answers))
	return nil
}

func listTextAnswers(ctx context.Context, repo repository.VotingRepository, q models.VotingQuestion, out *models.QuestionResult) error {
	answers, err := repo.ListTextAnswers(ctx, q.ID)
	if err != nil {
		return err
	}
	out.TextAnswers = answers
	out.TotalResponses = int64(len(answers))
	return nil
}
