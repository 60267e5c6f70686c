package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"go.mongodb.org/mongo-driver/bson"
)

// SeedMunicipalities contains the initial municipality rows. Addresses
// and communications can only reference rows seeded here.
var SeedMunicipalities = []models.Municipality{
	{ID: "sp-sao-paulo", State: "SP", City: "São Paulo", Active: true},
	{ID: "sp-campinas", State: "SP", City: "Campinas", Active: true},
	{ID: "sp-santos", State: "SP", City: "Santos", Active: true},
	{ID: "rj-rio-de-janeiro", State: "RJ", City: "Rio de Janeiro", Active: true},
	{ID: "rj-niteroi", State: "RJ", City: "Niterói", Active: true},
	{ID: "mg-belo-horizonte", State: "MG", City: "Belo Horizonte", Active: true},
	{ID: "mg-uberlandia", State: "MG", City: "Uberlândia", Active: true},
	{ID: "rs-porto-alegre", State: "RS", City: "Porto Alegre", Active: true},
	{ID: "pr-curitiba", State: "PR", City: "Curitiba", Active: true},
	{ID: "ba-salvador", State: "BA", City: "Salvador", Active: true},
}

// SeedServices contains the initial service catalog.
var SeedServices = []models.Service{
	{ID: "segunda-via-iptu", Name: "Segunda via de IPTU", Category: "documento", Active: true},
	{ID: "certidao-negativa", Name: "Certidão Negativa de Débitos", Category: "documento", Active: true},
	{ID: "alvara-funcionamento", Name: "Alvará de Funcionamento", Category: "documento", Active: true},
	{ID: "poda-de-arvore", Name: "Poda de Árvore", Category: "servico", Active: true},
	{ID: "tapa-buraco", Name: "Tapa-buraco", Category: "servico", Active: true},
	{ID: "iluminacao-publica", Name: "Reparo de Iluminação Pública", Category: "servico", Active: true},
	{ID: "coleta-entulho", Name: "Coleta de Entulho", Category: "servico", Active: true},
	{ID: "denuncia-obra-irregular", Name: "Denúncia de Obra Irregular", Category: "denuncia", Active: true},
	{ID: "denuncia-poluicao-sonora", Name: "Denúncia de Poluição Sonora", Category: "denuncia", Active: true},
	{ID: "sugestao-melhoria", Name: "Sugestão de Melhoria Urbana", Category: "sugestao", Active: true},
}

func main() {
	fmt.Println("🌱 Seeding municipality and service catalog...")

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize MongoDB
	config.InitMongoDB()
	if config.MongoDB == nil {
		log.Fatal("Failed to initialize MongoDB")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	seedCollection(ctx, config.AppConfig.MunicipalityCollection, toDocs(SeedMunicipalities))
	seedCollection(ctx, config.AppConfig.ServiceCollection, toDocs(SeedServices))

	fmt.Println("✅ Seeding complete")
}

func seedCollection(ctx context.Context, name string, docs []interface{}) {
	collection := config.MongoDB.Collection(name)

	count, err := collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Fatalf("Failed to count documents in %s: %v", name, err)
	}

	if count > 0 {
		fmt.Printf("⚠️  Found %d existing rows in %s. Replace them? (y/N): ", count, name)
		var response string
		if _, err := fmt.Scanln(&response); err != nil {
			fmt.Println("❌ Error reading input")
			return
		}
		if response != "y" && response != "Y" {
			fmt.Printf("⏭️  Skipping %s\n", name)
			return
		}

		result, err := collection.DeleteMany(ctx, bson.M{})
		if err != nil {
			log.Fatalf("Failed to delete existing rows in %s: %v", name, err)
		}
		fmt.Printf("🗑️  Deleted %d rows from %s\n", result.DeletedCount, name)
	}

	result, err := collection.InsertMany(ctx, docs)
	if err != nil {
		log.Fatalf("Failed to insert seed rows into %s: %v", name, err)
	}
	fmt.Printf("✅ Inserted %d rows into %s\n", len(result.InsertedIDs), name)
}

func toDocs[T any](rows []T) []interface{} {
	docs := make([]interface{}, len(rows))
	for i, row := range rows {
		docs[i] = row
	}
	return docs
}
