package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
)

const registrationSaga = "citizen_registration"

// CitizenService owns the citizen profile records and the registration
// sequence that creates them. Registration is an at-most-once,
// partially-compensating saga: the auth subsystem cannot be rolled back
// from here, so a failure after identity creation undoes the citizen
// row only and records the rest in the compensation log.
type CitizenService struct {
	database       *mongo.Database
	logger         *zap.Logger
	identities     *IdentityService
	municipalities *MunicipalityService
	compensator    *Compensator
}

// NewCitizenService creates a new CitizenService instance
func NewCitizenService(database *mongo.Database, logger *zap.Logger, identities *IdentityService, municipalities *MunicipalityService, compensator *Compensator) *CitizenService {
	return &CitizenService{
		database:       database,
		logger:         logger,
		identities:     identities,
		municipalities: municipalities,
		compensator:    compensator,
	}
}

// RegistrationResult carries the rows created by a successful
// registration.
type RegistrationResult struct {
	Citizen *models.Citizen        `json:"citizen"`
	Address *models.CitizenAddress `json:"address"`
}

// RegisterCitizen runs the full registration sequence: auth identity,
// citizen row, municipality lookup, primary address. Any failure after
// the citizen insert triggers a compensating delete of the citizen row;
// no step ever leaves a partially-created citizen visible.
func (s *CitizenService) RegisterCitizen(ctx context.Context, input models.RegistrationInput) (*RegistrationResult, error) {
	ctx, span := utils.TraceBusinessLogic(ctx, "register_citizen")
	defer span.End()

	cpf := utils.NormalizeDigits(input.CPF)
	if !utils.ValidateCPF(cpf) {
		return nil, models.ErrInvalidCPF
	}

	birthDate, err := utils.ParseBirthDate(input.BirthDate)
	if err != nil {
		return nil, models.ErrInvalidBirthDate
	}

	// Step 1: auth identity. A duplicate email stops here with nothing
	// persisted.
	identity, err := s.identities.SignUp(ctx, input.Email, input.Password)
	if err != nil {
		if errors.Is(err, models.ErrDuplicateEmail) {
			observability.Registrations.WithLabelValues("duplicate_email").Inc()
			return nil, err
		}
		observability.Registrations.WithLabelValues("identity_error").Inc()
		return nil, err
	}

	now := time.Now().UTC()
	citizen := &models.Citizen{
		ID:        utils.NewID(),
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		CPF:       cpf,
		BirthDate: birthDate,
		Phone:     utils.NormalizePhone(input.Phone),
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Step 2: citizen row.
	citizenCollection := s.database.Collection(config.AppConfig.CitizenCollection)
	if _, err := citizenCollection.InsertOne(ctx, citizen); err != nil {
		observability.Registrations.WithLabelValues("citizen_error").Inc()
		s.logger.Error("failed to insert citizen",
			zap.String("cpf", observability.MaskCPF(cpf)),
			zap.Error(err))
		// Nothing to undo yet, but the identity row is already
		// committed and cannot be rolled back from here.
		s.compensator.RecordOrphan(ctx, registrationSaga, "citizen_insert_failed",
			config.AppConfig.IdentityCollection, identity.ID, err.Error())
		return nil, fmt.Errorf("failed to create citizen: %w", err)
	}

	// Step 3: municipality lookup. A miss undoes the citizen row.
	municipality, err := s.municipalities.Resolve(ctx, input.State, input.City)
	if err != nil {
		observability.Registrations.WithLabelValues("municipality_not_found").Inc()
		s.compensator.DeleteDocument(ctx, registrationSaga, "municipality_lookup_failed",
			config.AppConfig.CitizenCollection, citizen.ID, err.Error())
		s.compensator.RecordOrphan(ctx, registrationSaga, "municipality_lookup_failed",
			config.AppConfig.IdentityCollection, identity.ID, err.Error())
		if errors.Is(err, models.ErrMunicipalityNotFound) {
			return nil, models.ErrMunicipalityNotFound
		}
		return nil, err
	}

	// Step 4: primary address.
	address := &models.CitizenAddress{
		ID:             utils.NewID(),
		CitizenID:      citizen.ID,
		MunicipalityID: municipality.ID,
		Street:         strings.TrimSpace(input.Street),
		Number:         strings.TrimSpace(input.Number),
		Complement:     input.Complement,
		Neighborhood:   strings.TrimSpace(input.Neighborhood),
		PostalCode:     utils.NormalizeDigits(input.PostalCode),
		IsPrimary:      true,
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	addressCollection := s.database.Collection(config.AppConfig.AddressCollection)
	if _, err := addressCollection.InsertOne(ctx, address); err != nil {
		observability.Registrations.WithLabelValues("address_error").Inc()
		s.logger.Error("failed to insert address",
			zap.String("citizen_id", citizen.ID),
			zap.Error(err))
		s.compensator.DeleteDocument(ctx, registrationSaga, "address_insert_failed",
			config.AppConfig.CitizenCollection, citizen.ID, err.Error())
		s.compensator.RecordOrphan(ctx, registrationSaga, "address_insert_failed",
			config.AppConfig.IdentityCollection, identity.ID, err.Error())
		return nil, fmt.Errorf("failed to create address: %w", err)
	}

	observability.Registrations.WithLabelValues("success").Inc()
	s.logger.Info("citizen registered",
		zap.String("citizen_id", citizen.ID),
		zap.String("identity_id", identity.ID),
		zap.String("cpf", observability.MaskCPF(cpf)))

	return &RegistrationResult{Citizen: citizen, Address: address}, nil
}

// GetCitizenByID returns an active citizen by id, going through the
// cache first.
func (s *CitizenService) GetCitizenByID(ctx context.Context, id string) (*models.Citizen, error) {
	cacheKey := fmt.Sprintf("citizen:%s", id)
	ctx, span := utils.TraceCacheGet(ctx, cacheKey)
	defer span.End()

	if cached, err := config.Redis.Get(ctx, cacheKey).Result(); err == nil {
		observability.CacheHits.WithLabelValues("citizen").Inc()
		var citizen models.Citizen
		if err := json.Unmarshal([]byte(cached), &citizen); err == nil {
			return &citizen, nil
		}
	}

	citizen, err := s.findActiveCitizen(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(citizen); err == nil {
		config.Redis.Set(ctx, cacheKey, data, config.AppConfig.RedisTTL)
	}

	return citizen, nil
}

// GetCitizenByEmail returns an active citizen by exact email match.
// Soft-disabled citizens are invisible here.
func (s *CitizenService) GetCitizenByEmail(ctx context.Context, email string) (*models.Citizen, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.findActiveCitizen(ctx, bson.M{"email": email})
}

// GetCitizenByCPF returns an active citizen by CPF (digits-only or
// formatted input accepted).
func (s *CitizenService) GetCitizenByCPF(ctx context.Context, cpf string) (*models.Citizen, error) {
	return s.findActiveCitizen(ctx, bson.M{"cpf": utils.NormalizeDigits(cpf)})
}

func (s *CitizenService) findActiveCitizen(ctx context.Context, filter bson.M) (*models.Citizen, error) {
	ctx, span := utils.TraceDatabaseFind(ctx, config.AppConfig.CitizenCollection, "active")
	defer span.End()

	filter["active"] = true

	var citizen models.Citizen
	err := s.database.Collection(config.AppConfig.CitizenCollection).FindOne(ctx, filter).Decode(&citizen)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, models.ErrNotFound
		}
		observability.DatabaseOperations.WithLabelValues("find", "error").Inc()
		return nil, fmt.Errorf("failed to get citizen: %w", err)
	}

	observability.DatabaseOperations.WithLabelValues("find", "success").Inc()
	return &citizen, nil
}

// UpdateCitizen applies a partial profile edit. Only name and phone are
// editable after registration; email and CPF are locked.
func (s *CitizenService) UpdateCitizen(ctx context.Context, id string, update models.CitizenUpdate) (*models.Citizen, error) {
	ctx, span := utils.TraceDatabaseUpdate(ctx, config.AppConfig.CitizenCollection, "_id", false)
	defer span.End()

	if update.Email != nil || update.CPF != nil {
		return nil, models.ErrImmutableField
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Name != nil {
		set["name"] = strings.TrimSpace(*update.Name)
	}
	if update.Phone != nil {
		set["phone"] = utils.NormalizePhone(*update.Phone)
	}

	collection := s.database.Collection(config.AppConfig.CitizenCollection)
	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": set})
	if err != nil {
		observability.DatabaseOperations.WithLabelValues("update", "error").Inc()
		return nil, fmt.Errorf("failed to update citizen: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, models.ErrNotFound
	}

	observability.DatabaseOperations.WithLabelValues("update", "success").Inc()
	s.invalidateCitizenCache(ctx, id)

	return s.GetCitizenByID(ctx, id)
}

// DisableCitizen soft-disables a citizen. The row is kept; every read
// path stops returning it.
func (s *CitizenService) DisableCitizen(ctx context.Context, id string) error {
	ctx, span := utils.TraceDatabaseUpdate(ctx, config.AppConfig.CitizenCollection, "_id", false)
	defer span.End()

	collection := s.database.Collection(config.AppConfig.CitizenCollection)
	result, err := collection.UpdateOne(ctx,
		bson.M{"_id": id, "active": true},
		bson.M{"$set": bson.M{"active": false, "updated_at": time.Now().UTC()}})
	if err != nil {
		return fmt.Errorf("failed to disable citizen: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrNotFound
	}

	s.invalidateCitizenCache(ctx, id)
	s.logger.Info("citizen disabled", zap.String("citizen_id", id))
	return nil
}

func (s *CitizenService) invalidateCitizenCache(ctx context.Context, id string) {
	cacheKey := fmt.Sprintf("citizen:%s", id)
	ctx, span := utils.TraceCacheInvalidation(ctx, cacheKey)
	defer span.End()

	if err := config.Redis.Del(ctx, cacheKey).Err(); err != nil {
		s.logger.Warn("failed to invalidate citizen cache",
			zap.String("citizen_id", id),
			zap.Error(err))
	}
}
