// Package feedback records customer reviews of delivered orders and keeps restaurant
// and rider ratings in step with them.
package feedback

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"foodDelivery/internal/apperr"
	"foodDelivery/models"
	"foodDelivery/repository"
)

const maxCommentLen = 2000

type Service struct {
	store *repository.Store
	log   logrus.FieldLogger
	now   func() time.Time
}

func New(store *repository.Store, log logrus.FieldLogger) *Service {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{store: store, log: log, now: time.Now}
}

// SubmitReview attaches a review to a delivered order. The insert and the
// recomputation of the restaurant's and rider's ratings commit together; the
// recomputation reads every review, so concurrent submissions are all counted.
func (s *Service) SubmitReview(ctx context.Context, orderID string, actor models.Actor, ratings models.Ratings, comment string) (*models.Review, error) {
	r, comment, err := validate(ratings, comment)
	if err != nil {
		return nil, err
	}
	var rv *models.Review
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		o, err := tx.Orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if o == nil {
			return apperr.New(apperr.ErrOrderNotFound, "order %s", orderID)
		}
		if actor.Role != models.RoleCustomer || actor.ID != o.CustomerID {
			return apperr.New(apperr.ErrForbidden, "%s may not review order %s", actor, o.ID)
		}
		if o.Status != models.OrderStatusDelivered {
			return apperr.New(apperr.ErrOrderNotDelivered, "order %s is %s", o.ID, o.Status)
		}
		existing, err := tx.Reviews.GetByOrderID(ctx, o.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperr.New(apperr.ErrReviewAlreadyExists, "order %s already has review %d", o.ID, existing.ID)
		}

		now := s.now().UTC()
		rv = &models.Review{
			OrderID:      o.ID,
			CustomerID:   o.CustomerID,
			RestaurantID: o.RestaurantID,
			RiderID:      o.RiderID,
			Ratings:      r,
			Comment:      comment,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		if err := tx.Reviews.Insert(ctx, rv); err != nil {
			if errors.Is(err, repository.ErrDuplicateReview) {
				return apperr.Wrap(apperr.ErrReviewAlreadyExists, err, "order "+o.ID)
			}
			return err
		}
		return recompute(ctx, tx, rv)
	})
	if err != nil {
		return nil, apperr.Storage(err, "submit review")
	}
	s.log.WithFields(logrus.Fields{
		"order_id":      rv.OrderID,
		"restaurant_id": rv.RestaurantID,
		"overall":       rv.Ratings.Overall,
	}).Info("review submitted")
	return rv, nil
}

// UpdateReview replaces the ratings and comment of a review the actor wrote.
func (s *Service) UpdateReview(ctx context.Context, reviewID int64, actor models.Actor, ratings models.Ratings, comment string) (*models.Review, error) {
	r, comment, err := validate(ratings, comment)
	if err != nil {
		return nil, err
	}
	var rv *models.Review
	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		var err error
		if rv, err = tx.Reviews.GetByID(ctx, reviewID); err != nil {
			return err
		}
		if rv == nil {
			return apperr.New(apperr.ErrReviewNotFound, "review %d", reviewID)
		}
		if actor.Role != models.RoleCustomer || actor.ID != rv.CustomerID {
			return apperr.New(apperr.ErrForbidden, "%s may not edit review %d", actor, reviewID)
		}
		rv.Ratings, rv.Comment, rv.UpdatedAt = r, comment, s.now().UTC()
		if err := tx.Reviews.Update(ctx, rv); err != nil {
			return err
		}
		return recompute(ctx, tx, rv)
	})
	if err != nil {
		return nil, apperr.Storage(err, "update review")
	}
	s.log.WithField("review_id", reviewID).Info("review updated")
	return rv, nil
}

// Rating is a maintained aggregate.
type Rating struct {
	Average float64
	Count   int64
}

// RestaurantRating returns the stored rating of a restaurant.
func (s *Service) RestaurantRating(ctx context.Context, restaurantID int64) (Rating, error) {
	rs, err := s.store.Catalog.GetRestaurant(ctx, restaurantID)
	if err != nil {
		return Rating{}, apperr.Wrap(apperr.ErrTransactionFailed, err, "load restaurant")
	}
	if rs == nil {
		return Rating{}, apperr.New(apperr.ErrRestaurantNotFound, "restaurant %d", restaurantID)
	}
	return Rating{Average: rs.Rating, Count: rs.TotalReviews}, nil
}

// recompute rewrites the restaurant's rating from all its reviews and, when a rider
// delivered the order, the rider's rating from the delivery scores.
func recompute(ctx context.Context, tx *repository.Store, rv *models.Review) error {
	avg, n, err := tx.Reviews.RestaurantAggregate(ctx, rv.RestaurantID)
	if err != nil {
		return err
	}
	if err := tx.Catalog.SetRestaurantRating(ctx, rv.RestaurantID, avg, n); err != nil {
		return err
	}
	if rv.RiderID == nil {
		return nil
	}
	avg, n, err = tx.Reviews.RiderAggregate(ctx, *rv.RiderID)
	if err != nil {
		return err
	}
	return tx.Riders.SetRating(ctx, *rv.RiderID, avg, n)
}

func validate(r models.Ratings, comment string) (models.Ratings, string, error) {
	r, err := r.Normalize()
	if err != nil {
		return r, "", apperr.Wrap(apperr.ErrInvalidInput, err, "ratings")
	}
	comment = strings.TrimSpace(comment)
	if len(comment) > maxCommentLen {
		return r, "", apperr.New(apperr.ErrInvalidInput, "comment longer than %d bytes", maxCommentLen)
	}
	return r, comment, nil
}
