package notifications

import (
	"encoding/json"
	"fmt"

	"perfeval/internal/domain/evaluation"
)

type addressed struct {
	UserID  string
	Message Message
}

// messagesFor maps a committed transition to the users who must act next.
func messagesFor(evt evaluation.TransitionEvent) []addressed {
	to := func(userID, ntype, title, body string) addressed {
		return addressed{UserID: userID, Message: Message{Type: ntype, Title: title, Body: body, EvaluationID: evt.EvaluationID}}
	}

	switch evt.To {
	case evaluation.StatusCreated:
		return []addressed{to(evt.EmployeeID, TypeEvaluationCreated,
			"Your performance evaluation is open",
			"Complete your self-assessment before the deadline.")}
	case evaluation.StatusAwaitingManagerApproval:
		return []addressed{to(evt.EvaluatorID, TypeAwaitingManagerApproval,
			"A self-assessment is waiting for you",
			"Review the self-assessment and add your ratings and comment.")}
	case evaluation.StatusManagerApprovedAwaitingComment:
		return []addressed{to(evt.EmployeeID, TypeAwaitingEmployeeComment,
			"Your manager reviewed your evaluation",
			"Read the feedback and add your final comment.")}
	case evaluation.StatusAwaitingFinalization:
		return []addressed{to(evt.EvaluatorID, TypeAwaitingFinalization,
			"An evaluation is ready to finalize",
			"The employee added a final comment. Finalize the evaluation to compute the score.")}
	case evaluation.StatusConcluded:
		body := "The evaluation has been finalized."
		if evt.FinalScore.Valid {
			body = fmt.Sprintf("The evaluation has been finalized with a score of %s.", evt.FinalScore.Decimal.StringFixed(2))
		}
		return []addressed{
			to(evt.EmployeeID, TypeEvaluationConcluded, "Evaluation concluded", body),
			to(evt.EvaluatorID, TypeEvaluationConcluded, "Evaluation concluded", body),
		}
	}
	return nil
}

func pushPayload(msg Message) ([]byte, error) {
	return json.Marshal(struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Type  string `json:"type"`
		URL   string `json:"url,omitempty"`
	}{
		Title: msg.Title,
		Body:  msg.Body,
		Type:  msg.Type,
		URL:   evaluationURL(msg.EvaluationID),
	})
}

func evaluationURL(evaluationID string) string {
	if evaluationID == "" {
		return ""
	}
	return "/evaluations/" + evaluationID
}
