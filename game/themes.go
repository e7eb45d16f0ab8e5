package game

import (
	"math/rand"
)

// DefaultThemes is the built-in pt-BR ordering theme pool.
var DefaultThemes = []string{
	"Temperatura de comidas (do mais frio ao mais quente)",
	"Tamanho de animais (do menor ao maior)",
	"Intensidade de filmes (do mais leve ao mais pesado)",
	"Preço de itens de mercado",
	"Velocidade de meios de transporte",
	"Nível de pimenta em pratos",
	"Distância de cidades brasileiras da capital",
	"Popularidade de esportes",
	"Dificuldade de idiomas para aprender",
	"Idade de invenções tecnológicas",
	"Altura de prédios famosos",
	"Duração de filmes clássicos",
	"Número de páginas de livros famosos",
	"Custo de carros populares",
	"Calorias de comidas típicas",
	"Intensidade de exercícios físicos",
	"Periculosidade de esportes radicais",
	"Frequência de uso de apps no celular",
	"Dificuldade de jogos de videogame",
	"Complexidade de receitas culinárias",
}

// NextTheme picks a round theme from the default pool plus customThemes,
// skipping anything in used. Once the whole pool is exhausted it falls back
// to a uniform pick from the default list alone; repeats are permitted at
// that point so the operation never fails.
func NextTheme(used []string, customThemes []string) string {
	exclude := make(map[string]bool, len(used))
	for _, theme := range used {
		exclude[theme] = true
	}

	pool := make([]string, 0, len(DefaultThemes)+len(customThemes))
	pool = append(pool, DefaultThemes...)
	pool = append(pool, customThemes...)

	available := make([]string, 0, len(pool))
	for _, theme := range pool {
		if !exclude[theme] {
			available = append(available, theme)
		}
	}

	if len(available) == 0 {
		return DefaultThemes[rand.Intn(len(DefaultThemes))]
	}
	return available[rand.Intn(len(available))]
}
