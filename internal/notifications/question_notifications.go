package notifications

import (
	"context"
	"fmt"
	"strconv"
)

// SendQuestionAnswered notifies the student that a coach answered their
// question.
func SendQuestionAnswered(ctx context.Context, d *Dispatcher, studentID, questionID int64, coachName string) (DispatchResult, error) {
	qID := strconv.FormatInt(questionID, 10)
	return d.Dispatch(ctx, DispatchRequest{
		RecipientID: studentID,
		Kind:        "question_answered",
		Title:       "Sorunuz yanıtlandı",
		Body:        fmt.Sprintf("%s sorunuzu yanıtladı", coachName),
		Data: map[string]string{
			"type":        "question_answered",
			"question_id": qID,
			"screen":      "questions/" + qID,
		},
	})
}

// SendQuestionAssigned notifies the coach that a question landed on their
// desk.
func SendQuestionAssigned(ctx context.Context, d *Dispatcher, coachID, questionID int64, subject string) (DispatchResult, error) {
	qID := strconv.FormatInt(questionID, 10)
	return d.Dispatch(ctx, DispatchRequest{
		RecipientID: coachID,
		Kind:        "question_assigned",
		Title:       "Yeni soru",
		Body:        fmt.Sprintf("Size yeni bir %s sorusu atandı", subject),
		Data: map[string]string{
			"type":        "question_assigned",
			"question_id": qID,
			"screen":      "coach/questions/" + qID,
		},
	})
}

// SendPaymentReceived confirms a completed subscription payment.
func SendPaymentReceived(ctx context.Context, d *Dispatcher, userID int64, plan, transactionID string) (DispatchResult, error) {
	return d.Dispatch(ctx, DispatchRequest{
		RecipientID: userID,
		Kind:        "payment_received",
		Title:       "Ödeme alındı",
		Body:        fmt.Sprintf("%s aboneliğiniz aktif edildi", plan),
		Data: map[string]string{
			"type":       "payment_received",
			"payment_id": transactionID,
			"screen":     "subscription",
		},
	})
}
