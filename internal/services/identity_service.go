package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
)

// IdentityService manages authentication identities and session tokens.
// The identity row is separate from the citizen profile; registration
// creates the identity first.
type IdentityService struct {
	database *mongo.Database
	logger   *zap.Logger
}

// NewIdentityService creates a new IdentityService instance
func NewIdentityService(database *mongo.Database, logger *zap.Logger) *IdentityService {
	return &IdentityService{
		database: database,
		logger:   logger,
	}
}

// SignUp creates an authentication identity for an email. A duplicate
// email returns models.ErrDuplicateEmail and no row is created.
func (s *IdentityService) SignUp(ctx context.Context, email, password string) (*models.AuthIdentity, error) {
	ctx, span := utils.TraceDatabaseInsert(ctx, config.AppConfig.IdentityCollection)
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	identity := &models.AuthIdentity{
		ID:           utils.NewID(),
		Email:        email,
		PasswordHash: string(hash),
		Active:       true,
		CreatedAt:    time.Now().UTC(),
	}

	collection := s.database.Collection(config.AppConfig.IdentityCollection)
	if _, err := collection.InsertOne(ctx, identity); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			s.logger.Info("signup rejected, email already registered",
				zap.String("email", observability.MaskEmail(email)))
			return nil, models.ErrDuplicateEmail
		}
		observability.DatabaseOperations.WithLabelValues("insert", "error").Inc()
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	observability.DatabaseOperations.WithLabelValues("insert", "success").Inc()
	return identity, nil
}

// Login verifies credentials and issues a signed session token.
func (s *IdentityService) Login(ctx context.Context, input models.LoginInput) (*models.SessionResponse, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.IdentityCollection, "email")
	defer span.End()

	email := strings.ToLower(strings.TrimSpace(input.Email))

	collection := s.database.Collection(config.AppConfig.IdentityCollection)
	var identity models.AuthIdentity
	err := collection.FindOne(ctx, bson.M{"email": email, "active": true}).Decode(&identity)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up identity: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(input.Password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	// A disabled profile blocks the session; an email with no profile
	// at all (registration never completed) still gets a token with an
	// empty citizen id.
	citizenID := ""
	var citizen models.Citizen
	err = s.database.Collection(config.AppConfig.CitizenCollection).
		FindOne(ctx, bson.M{"email": email}).Decode(&citizen)
	if err == nil {
		if !citizen.Active {
			return nil, models.ErrCitizenInactive
		}
		citizenID = citizen.ID
	} else if err != mongo.ErrNoDocuments {
		s.logger.Warn("failed to resolve citizen for session",
			zap.String("email", observability.MaskEmail(email)),
			zap.Error(err))
	}

	expiresAt := time.Now().UTC().Add(config.AppConfig.SessionTTL)
	claims := models.SessionClaims{
		Email:     email,
		CitizenID: citizenID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(config.AppConfig.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign session token: %w", err)
	}

	return &models.SessionResponse{Token: token, ExpiresAt: expiresAt}, nil
}

// DeleteIdentity removes an identity row. Registration rollback does
// not call this; identity cleanup needs admin-level credentials on the
// auth subsystem and is handled out of band. The compensation log still
// records the orphan so it can be reconciled later.
func (s *IdentityService) DeleteIdentity(ctx context.Context, id string) error {
	ctx, span := utils.TraceDatabaseDelete(ctx, config.AppConfig.IdentityCollection, "_id")
	defer span.End()

	collection := s.database.Collection(config.AppConfig.IdentityCollection)
	result, err := collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete identity: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}
